// Package configcmder provides the config command for managing persistent
// pitwall configuration stored in the .pitwall/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent pitwall configuration.

Configuration is stored as config.toml in the .pitwall/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.backend, storage.sqlite_path, storage.postgres_dsn,
  media.dir, api.listen,
  llm.provider, llm.model, llm.base_url,
  telemetry.base_url, telemetry.timeout, throttle.interval,
  event_stream.provider, event_stream.brokers, event_stream.topic

Drivers are configured as [[drivers]] tables edited directly in config.toml.

Use subcommands to get, set, or list configuration values:
  pitwall config set <key> <value>    Set a configuration value
  pitwall config get <key>            Get a configuration value
  pitwall config list                 List all configuration values

Examples:
  pitwall config set llm.provider anthropic
  pitwall config set throttle.interval 1m
  pitwall config get storage.backend
  pitwall config list`

const configShortDesc string = "Manage persistent pitwall configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
