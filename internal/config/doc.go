// Package config loads, normalizes, and validates capsum configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEYS. The Config type centralizes every knob the CLI and the
// processing core need: directory layout, API keys, worker pool sizing,
// retry and rate limit budgets, and the phrase sets used to classify
// service failures.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
