// Package config - test helpers
//
// This file exports internal functions for use in tests.
// These functions should not be used in production code.
package config

// LoadForTesting exposes load for unit tests, with explicit CLI arguments
// and an environment lookup function instead of the process globals.
//
// WARNING: This function is intended for testing only.
// Do not use in production code.
func LoadForTesting(args []string, getenv func(string) string) (*Config, error) {
	return load(args, getenv)
}

// LoadFromFileForTesting exposes loadFromFile for unit tests. This allows
// tests to exercise file loading behavior without the full Load() function.
//
// WARNING: This function is intended for testing only.
// Do not use in production code.
func (c *Config) LoadFromFileForTesting(configPath string) error {
	return c.loadFromFile(configPath)
}
