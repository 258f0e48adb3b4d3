// Package gemini captions images through the Gemini API. It wires the key
// pool, rate limiter, and failure classifier into a single Process call
// that rotates keys on rate limits, backs off on transient server errors,
// and reduces every other failure to a marker payload for the output file.
package gemini
