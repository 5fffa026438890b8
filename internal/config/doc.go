// Package config loads and validates the watcher's YAML configuration.
//
// Config files support ${VAR} environment variable substitution, which keeps
// credentials out of the file itself. Omitting the database block runs the
// watcher in log-only mode.
package config
