package config

import (
	"strings"
)

// Config represents the persistent pitwall configuration stored as
// config.toml in the .pitwall/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Media       MediaConfig       `toml:"media"`
	API         APIConfig         `toml:"api"`
	LLM         LLMConfig         `toml:"llm"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	Throttle    ThrottleConfig    `toml:"throttle"`
	EventStream EventStreamConfig `toml:"event_stream"`
	Drivers     []DriverConfig    `toml:"drivers,omitempty"`
}

// StorageConfig selects the event/artifact store.
type StorageConfig struct {
	// Backend is "sqlite", "postgres" or "memory".
	Backend     string `toml:"backend,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// MediaConfig holds where rendered charts are written.
type MediaConfig struct {
	Dir string `toml:"dir,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// LLMConfig selects the model used for parameter extraction and summaries.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
}

// TelemetryConfig points at the Ergast-compatible timing data API.
type TelemetryConfig struct {
	BaseURL string `toml:"base_url,omitempty"`

	// Timeout is a Go duration string, e.g. "30s".
	Timeout string `toml:"timeout,omitempty"`
}

// ThrottleConfig holds the per-session query interval.
type ThrottleConfig struct {
	// Interval is a Go duration string. "0s" disables throttling.
	Interval string `toml:"interval,omitempty"`
}

// EventStreamConfig holds artifact event publishing settings.
type EventStreamConfig struct {
	// Provider is "none" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers into trimmed, non-empty addresses.
func (e EventStreamConfig) BrokerList() []string {
	var brokers []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// DriverConfig is one [[drivers]] table.
type DriverConfig struct {
	Code    string   `toml:"code"`
	Number  int      `toml:"number"`
	Name    string   `toml:"name,omitempty"`
	Aliases []string `toml:"aliases,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.backend":       oneOfKey("storage.backend", []string{"sqlite", "postgres", "memory"}, func(c *Config) *string { return &c.Storage.Backend }),
	"storage.sqlite_path":   stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":  stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"media.dir":             stringKey(func(c *Config) *string { return &c.Media.Dir }),
	"api.listen":            stringKey(func(c *Config) *string { return &c.API.Listen }),
	"llm.provider":          stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.model":             stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.base_url":          stringKey(func(c *Config) *string { return &c.LLM.BaseURL }),
	"telemetry.base_url":    stringKey(func(c *Config) *string { return &c.Telemetry.BaseURL }),
	"telemetry.timeout":     durationKey("telemetry.timeout", func(c *Config) *string { return &c.Telemetry.Timeout }),
	"throttle.interval":     durationKey("throttle.interval", func(c *Config) *string { return &c.Throttle.Interval }),
	"event_stream.provider": oneOfKey("event_stream.provider", []string{"none", "kafka"}, func(c *Config) *string { return &c.EventStream.Provider }),
	"event_stream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"event_stream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}
