//go:build console

package main

import "errors"

// runEmbeddedUI is a stub for console-only builds
func runEmbeddedUI(config *Config) error {
	return errors.New("embedded UI not available in console build. Use -web flag for external browser mode")
}
