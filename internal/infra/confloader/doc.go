// Package confloader provides configuration loading mechanism.
//
// This package implements a flexible configuration loader that supports
// multiple sources and formats using koanf as the underlying library.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (loaded as a map)
//  2. Environment variables
//  3. Configuration file (YAML)
//  4. Default values
//
// The watcher reloads the file on change so settings like the log level
// can be adjusted without a restart.
package confloader
