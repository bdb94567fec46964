package config

import (
	"github.com/papercomputeco/pitwall/pkg/drivers"
)

const (
	defaultStorageBackend = "sqlite"
	defaultAPIListen      = ":8081"

	defaultLLMProvider = "openai"

	defaultTelemetryBaseURL = "https://api.jolpi.ca/ergast/f1"
	defaultTelemetryTimeout = "30s"

	defaultThrottleInterval = "30s"

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "pitwall.artifacts"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. Empty paths are
// resolved against the .pitwall/ directory at startup.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Backend: defaultStorageBackend,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
		},
		Telemetry: TelemetryConfig{
			BaseURL: defaultTelemetryBaseURL,
			Timeout: defaultTelemetryTimeout,
		},
		Throttle: ThrottleConfig{
			Interval: defaultThrottleInterval,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}

// DriverTable builds the driver alias table from the [[drivers]] tables, or
// returns the built-in table when none are configured.
func (c *Config) DriverTable() (*drivers.Table, error) {
	if len(c.Drivers) == 0 {
		return drivers.Default(), nil
	}

	entries := make([]drivers.Entry, 0, len(c.Drivers))
	for _, d := range c.Drivers {
		entries = append(entries, drivers.Entry{
			Driver:  drivers.Driver{Code: d.Code, Number: d.Number, Name: d.Name},
			Aliases: d.Aliases,
		})
	}
	return drivers.NewTable(entries...)
}
