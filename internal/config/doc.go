// Package config loads, normalizes, and validates fileconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, applies a local .env file, and honours
// environment fallbacks such as REDIS_URL and LIBRETRANSLATE_URL. The Config
// type centralizes every knob the worker daemon and CLI need, so storage,
// queue, tool, and network settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
