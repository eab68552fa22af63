// Package config loads calltrack settings from CALLTRACK_* environment
// variables and opens the configured backing store.
package config
