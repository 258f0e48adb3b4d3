package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizeProcessing()
	c.normalizePhrases()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CheckpointPath) == "" {
		c.Paths.CheckpointPath = defaultCheckpointPath
	}
	if c.Paths.CheckpointPath, err = expandPath(c.Paths.CheckpointPath); err != nil {
		return fmt.Errorf("paths.checkpoint_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkerFile) != "" {
		if c.Paths.WorkerFile, err = expandPath(c.Paths.WorkerFile); err != nil {
			return fmt.Errorf("paths.worker_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeGemini() {
	keys := make([]string, 0, len(c.Gemini.APIKeys))
	for _, key := range c.Gemini.APIKeys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	if len(keys) == 0 {
		if value, ok := os.LookupEnv("GEMINI_API_KEYS"); ok {
			for _, key := range strings.Split(value, ",") {
				if trimmed := strings.TrimSpace(key); trimmed != "" {
					keys = append(keys, trimmed)
				}
			}
		}
	}
	c.Gemini.APIKeys = keys
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultModel
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeProcessing() {
	if c.Processing.Workers <= 0 {
		c.Processing.Workers = defaultWorkers
	}
	if c.Processing.MaxRetries < 0 {
		c.Processing.MaxRetries = defaultMaxRetries
	}
	if c.Processing.RetryBaseSeconds <= 0 {
		c.Processing.RetryBaseSeconds = defaultRetryBase
	}
	if c.Processing.RetryMaxSeconds <= 0 {
		c.Processing.RetryMaxSeconds = defaultRetryMax
	}
	if c.Processing.RotationDelaySeconds < 0 {
		c.Processing.RotationDelaySeconds = defaultRotationDelay
	}
	if c.Processing.RateLimitCalls <= 0 {
		c.Processing.RateLimitCalls = defaultRateLimitCalls
	}
	if c.Processing.RateLimitPeriod <= 0 {
		c.Processing.RateLimitPeriod = defaultRateLimitPeriod
	}
}

func (c *Config) normalizePhrases() {
	if len(c.Phrases.RateLimit) == 0 {
		c.Phrases.RateLimit = append([]string(nil), defaultRateLimitPhrases...)
	}
	if len(c.Phrases.ServerRetry) == 0 {
		c.Phrases.ServerRetry = append([]string(nil), defaultServerRetryPhrases...)
	}
	if len(c.Phrases.ErrorMarkers) == 0 {
		c.Phrases.ErrorMarkers = append([]string(nil), defaultErrorMarkers...)
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
