// Package pitwallcmder
package pitwallcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/pitwall/cmd/pitwall/ask"
	authcmder "github.com/papercomputeco/pitwall/cmd/pitwall/auth"
	configcmder "github.com/papercomputeco/pitwall/cmd/pitwall/config"
	eventscmder "github.com/papercomputeco/pitwall/cmd/pitwall/events"
	initcmder "github.com/papercomputeco/pitwall/cmd/pitwall/init"
	servecmder "github.com/papercomputeco/pitwall/cmd/pitwall/serve"
	versioncmder "github.com/papercomputeco/pitwall/cmd/version"
)

const pitwallLongDesc string = `Pitwall answers questions about a Formula 1 driver's weekend with charts.

Ask from the terminal or run the HTTP and MCP servers:
  pitwall ask "how did Colapinto do at Imola 2024?"
  pitwall serve      Run the API server with the MCP endpoint
  pitwall events     List cached events and their charts`

const pitwallShortDesc string = "Pitwall - F1 driver analysis"

func NewPitwallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pitwall",
		Short:        pitwallShortDesc,
		Long:         pitwallLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .pitwall/ directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(eventscmder.NewEventsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
