// Package config handles application configuration loading and validation.
//
// Defaults are overlaid by an optional YAML file (CONFIG_FILE) and then by
// environment variables. Validate fails fast on a misconfigured backend.
package config
