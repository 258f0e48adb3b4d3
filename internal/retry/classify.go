package retry

import "strings"

// Classification tags a service failure with the recovery action it allows.
type Classification int

const (
	// Terminal failures are recorded and never retried within the call.
	Terminal Classification = iota
	// RateLimited failures rotate to the next API key and retry
	// immediately without consuming a retry slot.
	RateLimited
	// RetryableServer failures retry after exponential backoff until the
	// retry budget is exhausted.
	RetryableServer
)

func (c Classification) String() string {
	switch c {
	case RateLimited:
		return "rate_limited"
	case RetryableServer:
		return "retryable_server"
	default:
		return "terminal"
	}
}

// Classifier matches failure messages against the configured phrase sets.
type Classifier struct {
	ratePhrases   []string
	serverPhrases []string
}

// NewClassifier builds a classifier from the rate-limit and transient-server
// phrase sets.
func NewClassifier(ratePhrases, serverPhrases []string) *Classifier {
	return &Classifier{
		ratePhrases:   append([]string(nil), ratePhrases...),
		serverPhrases: append([]string(nil), serverPhrases...),
	}
}

// Classify inspects a failure message. Rate-limit phrases are checked first;
// a message matching both a rate-limit and a server phrase is always treated
// as rate limited.
func (c *Classifier) Classify(message string) Classification {
	if c.IsRateLimit(message) {
		return RateLimited
	}
	for _, phrase := range c.serverPhrases {
		if strings.Contains(message, phrase) {
			return RetryableServer
		}
	}
	return Terminal
}

// IsRateLimit reports whether the message matches any rate-limit phrase,
// case-insensitively.
func (c *Classifier) IsRateLimit(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range c.ratePhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
