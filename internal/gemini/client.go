package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/genai"

	"capsum/internal/keypool"
	"capsum/internal/logging"
	"capsum/internal/ratelimit"
	"capsum/internal/retry"
)

// Config carries the captioning parameters for a client.
type Config struct {
	Model         string
	Prompt        string
	MaxRetries    int
	RetryBase     time.Duration
	RetryMax      time.Duration
	RotationDelay time.Duration
	Timeout       time.Duration
}

// caller issues one captioning request using the API key at keyIndex. The
// production caller talks to the Gemini API; tests substitute their own.
type caller func(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error)

// Client captions images through the Gemini API, rotating across the key
// pool on rate limits and retrying transient server failures with backoff.
// Every outcome is a Result; failures become markers for the output file
// rather than errors that abort the batch.
type Client struct {
	cfg        Config
	pool       *keypool.Pool
	limiter    *ratelimit.Limiter
	classifier *retry.Classifier
	logger     *slog.Logger

	clients []*genai.Client
	call    caller
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option adjusts client construction.
type Option func(*Client)

// WithCaller replaces the request transport. Used by tests.
func WithCaller(call caller) Option {
	return func(c *Client) { c.call = call }
}

// WithSleeper replaces the function used for rotation and backoff delays.
// Used by tests to avoid real sleeps.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// Safety filtering is disabled for every category: the captioner must
// describe whatever frames the dataset contains, and a block still
// surfaces as a failure marker through the finish reason.
var relaxedSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// New builds a client with one Gemini connection per pool key.
func New(ctx context.Context, cfg Config, pool *keypool.Pool, limiter *ratelimit.Limiter, classifier *retry.Classifier, logger *slog.Logger, opts ...Option) (*Client, error) {
	if pool == nil {
		return nil, fmt.Errorf("key pool is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("failure classifier is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	c := &Client{
		cfg:        cfg,
		pool:       pool,
		limiter:    limiter,
		classifier: classifier,
		logger:     logger,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.call == nil {
		for i := 0; i < pool.Size(); i++ {
			client, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  pool.Key(i),
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return nil, fmt.Errorf("create Gemini client for key %s: %w", pool.Redacted(i), err)
			}
			c.clients = append(c.clients, client)
		}
		c.call = c.generate
	}
	return c, nil
}

// Process captions a single image. One rate limiter admission covers the
// whole call including any key rotations and retries. Rate-limit rotations
// never consume the retry budget; only transient server failures do.
func (c *Client) Process(ctx context.Context, sourcePath string) Result {
	keyIndex, _ := c.pool.Current()
	if err := c.limiter.Admit(ctx); err != nil {
		return failureResult(keyIndex, fmt.Sprintf("Processing interrupted for %s: %v", sourcePath, err))
	}

	imageData, err := os.ReadFile(sourcePath)
	if err != nil {
		return failureResult(keyIndex, fmt.Sprintf("Error reading %s: %v", sourcePath, err))
	}
	mimeType := MIMEType(sourcePath)

	keysTried := make(map[int]struct{})
	attempt := 0
	for {
		keyIndex, _ = c.pool.Current()
		c.pool.RecordRequest(keyIndex)

		resp, err := c.call(ctx, keyIndex, c.cfg.Prompt, imageData, mimeType)
		if err == nil {
			caption, marker := interpretResponse(resp, sourcePath)
			if marker != nil {
				c.pool.RecordError(keyIndex)
				c.logger.Warn("malformed response",
					logging.String("image", sourcePath),
					logging.Int("key_index", keyIndex),
					logging.String("reason", marker.Error))
				return Result{Text: marker.Payload(), Failure: marker, KeyIndex: keyIndex}
			}
			return Result{Text: caption, KeyIndex: keyIndex}
		}

		c.pool.RecordError(keyIndex)
		message := err.Error()

		switch c.classifier.Classify(message) {
		case retry.RateLimited:
			c.pool.RecordRateLimit(keyIndex)
			keysTried[keyIndex] = struct{}{}
			if len(keysTried) >= c.pool.Size() {
				return failureResult(keyIndex, fmt.Sprintf("All API keys rate limited for %s: %s", sourcePath, message))
			}
			next := c.pool.Rotate()
			c.logger.Warn("rate limit hit, rotating API key",
				logging.String("image", sourcePath),
				logging.Int("from_key", keyIndex),
				logging.Int("to_key", next))
			if c.cfg.RotationDelay > 0 {
				if err := c.sleep(ctx, c.cfg.RotationDelay); err != nil {
					return failureResult(keyIndex, fmt.Sprintf("Processing interrupted for %s: %v", sourcePath, err))
				}
			}

		case retry.RetryableServer:
			if attempt >= c.cfg.MaxRetries {
				return failureResult(keyIndex, fmt.Sprintf("Max retries (%d) reached for %s: %s", c.cfg.MaxRetries, sourcePath, message))
			}
			delay := retry.Backoff(attempt, c.cfg.RetryBase, c.cfg.RetryMax, true)
			c.logger.Warn("server error, backing off",
				logging.String("image", sourcePath),
				logging.Int("attempt", attempt+1),
				logging.Duration("delay", delay),
				logging.String("error", message))
			if err := c.sleep(ctx, delay); err != nil {
				return failureResult(keyIndex, fmt.Sprintf("Processing interrupted for %s: %v", sourcePath, err))
			}
			attempt++

		default:
			return failureResult(keyIndex, fmt.Sprintf("Error processing %s: %s", sourcePath, message))
		}
	}
}

func (c *Client) generate(ctx context.Context, keyIndex int, prompt string, imageData []byte, mimeType string) (*genai.GenerateContentResponse, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(imageData, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	callCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.clients[keyIndex].Models.GenerateContent(callCtx, c.cfg.Model, contents, &genai.GenerateContentConfig{
		SafetySettings: relaxedSafety,
	})
}

// interpretResponse extracts the caption from a successful transport
// response, or explains why the response is unusable. Malformed responses
// are final: nothing here is retried.
func interpretResponse(resp *genai.GenerateContentResponse, sourcePath string) (string, *FailureMarker) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &FailureMarker{Error: fmt.Sprintf("No candidates returned for %s", sourcePath)}
	}
	candidate := resp.Candidates[0]

	switch candidate.FinishReason {
	case genai.FinishReasonStop:
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			return "", &FailureMarker{Error: fmt.Sprintf("No content parts in response for %s", sourcePath)}
		}
		var caption string
		for _, part := range candidate.Content.Parts {
			caption += part.Text
		}
		if caption == "" {
			return "", &FailureMarker{Error: fmt.Sprintf("Empty caption in response for %s", sourcePath)}
		}
		return caption, nil
	case genai.FinishReasonSafety:
		return "", &FailureMarker{Error: fmt.Sprintf("Content blocked by safety filters for %s", sourcePath)}
	case genai.FinishReasonMaxTokens:
		return "", &FailureMarker{Error: fmt.Sprintf("Response truncated by token limit for %s", sourcePath)}
	default:
		return "", &FailureMarker{Error: fmt.Sprintf("Unexpected finish reason %q for %s", candidate.FinishReason, sourcePath)}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
