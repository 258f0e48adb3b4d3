// Package keypool rotates Gemini API keys and tracks per-key usage.
//
// The pool never removes a key; when the service reports quota exhaustion
// the caller rotates to the next key and gives up only after every key has
// been tried within one request's lifetime.
package keypool
