// Package config loads, normalizes, and validates triage configuration data.
//
// It supplies repository defaults (including the default media extension
// table), expands user paths with tilde shortcuts, reads TOML files, and
// normalizes extensions to lower-case dotted form. The Config type is treated
// as an immutable snapshot for the duration of a scan.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
