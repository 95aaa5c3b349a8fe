// Package config loads, normalizes, and validates newsreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and HF_TOKEN. The Config type centralizes every knob the
// daemon and CLI need, allowing asset directories and external service
// credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
