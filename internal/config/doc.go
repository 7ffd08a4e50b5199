// Package config loads, validates, and normalizes novelkit configuration
// from TOML files, providing defaults suitable for a fresh workspace.
package config
