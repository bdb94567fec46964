// Package stack resolves pitwall settings from viper and assembles the
// store, resolver and dispatcher every command runs on.
package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/pitwall/pkg/config"
	"github.com/papercomputeco/pitwall/pkg/dotdir"
	"github.com/papercomputeco/pitwall/pkg/drivers"
)

const sqliteFile = "pitwall.sqlite"

// Settings is the effective configuration after flag, env, file and default
// precedence has been applied.
type Settings struct {
	// Dir is the resolved .pitwall/ directory.
	Dir string

	Storage     config.StorageConfig
	MediaDir    string
	Listen      string
	LLM         config.LLMConfig
	Telemetry   config.TelemetryConfig
	Timeout     time.Duration
	Throttle    time.Duration
	EventStream config.EventStreamConfig
	Drivers     *drivers.Table
}

// LoadSettings reads v. When no .pitwall/ directory can be resolved one is
// initialized in the home directory so the SQLite database and media have
// somewhere to live.
func LoadSettings(v *viper.Viper, configDir string) (*Settings, error) {
	ddm := dotdir.NewManager()
	dir, err := ddm.Target(configDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		if dir, err = ddm.Init(""); err != nil {
			return nil, err
		}
	}

	s := &Settings{
		Dir: dir,
		Storage: config.StorageConfig{
			Backend:     v.GetString("storage.backend"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		MediaDir: v.GetString("media.dir"),
		Listen:   v.GetString("api.listen"),
		LLM: config.LLMConfig{
			Provider: v.GetString("llm.provider"),
			Model:    v.GetString("llm.model"),
			BaseURL:  v.GetString("llm.base_url"),
		},
		Telemetry: config.TelemetryConfig{
			BaseURL: v.GetString("telemetry.base_url"),
			Timeout: v.GetString("telemetry.timeout"),
		},
		EventStream: config.EventStreamConfig{
			Provider: v.GetString("event_stream.provider"),
			Brokers:  v.GetString("event_stream.brokers"),
			Topic:    v.GetString("event_stream.topic"),
		},
	}

	if s.Timeout, err = parseDuration("telemetry.timeout", s.Telemetry.Timeout); err != nil {
		return nil, err
	}
	if s.Throttle, err = parseDuration("throttle.interval", v.GetString("throttle.interval")); err != nil {
		return nil, err
	}

	if s.Storage.SQLitePath == "" {
		s.Storage.SQLitePath = filepath.Join(dir, sqliteFile)
	}
	if s.MediaDir == "" {
		s.MediaDir = dotdir.MediaDir(dir)
	}
	if err := os.MkdirAll(s.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}

	var entries []config.DriverConfig
	if err := v.UnmarshalKey("drivers", &entries); err != nil {
		return nil, fmt.Errorf("reading drivers: %w", err)
	}
	cfg := &config.Config{Drivers: entries}
	if s.Drivers, err = cfg.DriverTable(); err != nil {
		return nil, fmt.Errorf("building driver table: %w", err)
	}

	return s, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
