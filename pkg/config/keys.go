package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// durationKey validates values as Go durations before storing them.
func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if d < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = v
			return nil
		},
	}
}

// oneOfKey restricts values to allowed.
func oneOfKey(name string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if !slices.Contains(allowed, v) {
				return fmt.Errorf("invalid value for %s: %q (expected one of: %s)",
					name, v, strings.Join(allowed, ", "))
			}
			*field(c) = v
			return nil
		},
	}
}
