package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "pitwall serve", "pitwall ask" and "pitwall events").
type Flag struct {
	// Name is the long flag name (e.g. "sqlite").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.sqlite_path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag and BindRegisteredFlags to
// avoid typos or drift from one command to another.
const (
	FlagListen         = "listen"
	FlagStorageBackend = "storage"
	FlagSQLite         = "sqlite"
	FlagPostgres       = "postgres"
	FlagMediaDir       = "media-dir"
	FlagLLMProvider    = "provider"
	FlagLLMModel       = "model"
	FlagLLMBaseURL     = "llm-base-url"
	FlagTelemetryURL   = "telemetry-url"
	FlagThrottle       = "throttle"
	FlagEventStream    = "event-stream"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
)

// Flags is the registry shared by every pitwall command.
var Flags = FlagSet{
	FlagListen: {
		Name: "listen", Shorthand: "l", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	FlagStorageBackend: {
		Name: "storage", ViperKey: "storage.backend",
		Description: "Storage backend (sqlite, postgres, memory)",
	},
	FlagSQLite: {
		Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path",
		Description: "Path to SQLite database (default: .pitwall/pitwall.sqlite)",
	},
	FlagPostgres: {
		Name: "postgres", ViperKey: "storage.postgres_dsn",
		Description: "PostgreSQL connection string",
	},
	FlagMediaDir: {
		Name: "media-dir", ViperKey: "media.dir",
		Description: "Directory rendered charts are written to (default: .pitwall/media)",
	},
	FlagLLMProvider: {
		Name: "provider", ViperKey: "llm.provider",
		Description: "LLM provider for extraction and summaries (openai, anthropic, ollama)",
	},
	FlagLLMModel: {
		Name: "model", Shorthand: "m", ViperKey: "llm.model",
		Description: "LLM model (default depends on provider)",
	},
	FlagLLMBaseURL: {
		Name: "llm-base-url", ViperKey: "llm.base_url",
		Description: "Override the LLM provider base URL",
	},
	FlagTelemetryURL: {
		Name: "telemetry-url", ViperKey: "telemetry.base_url",
		Description: "Ergast-compatible timing data API base URL",
	},
	FlagThrottle: {
		Name: "throttle", ViperKey: "throttle.interval",
		Description: "Minimum interval between queries of one session (0s disables)",
	},
	FlagEventStream: {
		Name: "event-stream", ViperKey: "event_stream.provider",
		Description: "Artifact event publisher (none, kafka)",
	},
	FlagKafkaBrokers: {
		Name: "kafka-brokers", ViperKey: "event_stream.brokers",
		Description: "Comma separated Kafka brokers",
	},
	FlagKafkaTopic: {
		Name: "kafka-topic", ViperKey: "event_stream.topic",
		Description: "Kafka topic for artifact events",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}
