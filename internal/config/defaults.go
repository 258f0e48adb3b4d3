package config

const (
	defaultInputDir        = "~/capsum/images"
	defaultOutputDir       = "~/capsum/captions"
	defaultLogDir          = "~/.local/share/capsum/logs"
	defaultCheckpointPath  = "~/.local/share/capsum/checkpoint.db"
	defaultModel           = "gemini-2.5-flash"
	defaultTimeoutSeconds  = 120
	defaultWorkers         = 10
	defaultMaxRetries      = 5
	defaultRetryBase       = 1.0
	defaultRetryMax        = 60.0
	defaultRotationDelay   = 1.0
	defaultRateLimitCalls  = 1000
	defaultRateLimitPeriod = 60
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Rate limit phrase set: any of these substrings in a service failure marks
// the active key as quota-exhausted and triggers rotation.
var defaultRateLimitPhrases = []string{
	"Error code: 429",
	"insufficient_quota",
	"exceeded your current quota",
	"Rate limit exceeded",
	"Too many requests",
	"RESOURCE_EXHAUSTED",
	"Quota exceeded",
	"quota_exceeded",
	"rate_limit_exceeded",
}

// Transient server phrase set: failures carrying these substrings are retried
// with exponential backoff instead of being recorded as terminal.
var defaultServerRetryPhrases = []string{
	"500",
	"503",
	"INTERNAL",
	"UNAVAILABLE",
	"Server is overloaded",
}

// Error marker set: outputs containing any of these substrings are treated as
// failed captions and re-queued on the next run. The scan and the post-write
// check must use the same set.
var defaultErrorMarkers = []string{
	"An internal error has occurred",
	"500 INTERNAL",
	"503 Service Unavailable",
	"Server is overloaded",
	"Error processing",
	"error",
	"Max retries",
	"RESOURCE_EXHAUSTED",
	"The model is overloaded",
	"All API keys rate limited",
	"Content blocked by safety filters",
}

const defaultPrompt = `Analyze the image and produce a single JSON object with this shape:
{
  "setting": {"location": "", "environment": "", "time_of_day": ""},
  "objects": {"<specific_object_name>": {"count": 0, "description": ""}},
  "activity": {"primary_action": "", "secondary_actions": []},
  "text_elements": {"scene_text": []},
  "caption": ""
}
Rules: only include objects that actually appear in the scene; use specific,
searchable object names; counts are positive integers; use "None" for fields
that cannot be determined; the "caption" field must synthesize all metadata
into one natural, detailed description of the scene.`

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:       defaultInputDir,
			OutputDir:      defaultOutputDir,
			LogDir:         defaultLogDir,
			CheckpointPath: defaultCheckpointPath,
		},
		Gemini: Gemini{
			Model:          defaultModel,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Processing: Processing{
			Workers:              defaultWorkers,
			MaxRetries:           defaultMaxRetries,
			RetryBaseSeconds:     defaultRetryBase,
			RetryMaxSeconds:      defaultRetryMax,
			RotationDelaySeconds: defaultRotationDelay,
			RateLimitCalls:       defaultRateLimitCalls,
			RateLimitPeriod:      defaultRateLimitPeriod,
			RetryErrorsOnStart:   true,
		},
		Phrases: Phrases{
			RateLimit:    append([]string(nil), defaultRateLimitPhrases...),
			ServerRetry:  append([]string(nil), defaultServerRetryPhrases...),
			ErrorMarkers: append([]string(nil), defaultErrorMarkers...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
