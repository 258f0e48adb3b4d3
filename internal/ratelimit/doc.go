// Package ratelimit bounds aggregate request throughput with a sliding
// window of admission timestamps. The remote service enforces its limit
// globally, so one limiter is shared across every worker and API key.
package ratelimit
