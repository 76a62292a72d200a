// Package env reads raw process environment values. Structured settings go
// through envconfig in pkg/config; this covers the handful of knobs needed
// before the config is loaded, such as the logger's output format.
package env

import "os"

// Get returns the named variable, or fallback when it is unset or blank.
// Blank counts as unset so an empty line in .env does not silence a default.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}
