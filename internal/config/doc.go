// Package config loads, normalizes, and validates Murmur configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OLLAMA_HOST. The Config type centralizes every knob the daemon and CLI need,
// allowing state/work directories and external service endpoints to be
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
