// Package eventscmder provides the events command for listing the cached
// events and the charts stored for them.
package eventscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/pitwall/cmd/pitwall/stack"
	"github.com/papercomputeco/pitwall/pkg/cliui"
	"github.com/papercomputeco/pitwall/pkg/config"
	"github.com/papercomputeco/pitwall/pkg/logger"
	"github.com/papercomputeco/pitwall/pkg/storage"
)

type eventsCommander struct {
	backend, sqlitePath, postgresDSN string
	jsonOut                          bool

	configDir string
	viper     *viper.Viper
}

var eventsFlagKeys = []string{
	config.FlagStorageBackend,
	config.FlagSQLite,
	config.FlagPostgres,
}

// eventListing is the --json shape.
type eventListing struct {
	*storage.Event
	Artifacts []*storage.Artifact `json:"artifacts"`
}

const eventsLongDesc string = `List cached events and their charts.

An event is one (season, Grand Prix, driver) subject. Every chart generated
for it is listed below it with the file it was written to.

Examples:
  pitwall events
  pitwall events --json`

const eventsShortDesc string = "List cached events and their charts"

func NewEventsCmd() *cobra.Command {
	cmder := &eventsCommander{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: eventsShortDesc,
		Long:  eventsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.viper, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(cmder.viper, cmd, config.Flags, eventsFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagStorageBackend, &cmder.backend)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print events as JSON")

	return cmd
}

func (c *eventsCommander) run(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := stack.LoadSettings(c.viper, c.configDir)
	if err != nil {
		return err
	}

	store, err := stack.OpenStore(ctx, settings, logger.Nop())
	if err != nil {
		return err
	}
	defer store.Close()

	listing, err := list(ctx, store)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	if len(listing) == 0 {
		fmt.Fprintf(w, "\n  %s No cached events.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Cached events"))
	for _, e := range listing {
		fmt.Fprintf(w, "  %s  %s %s\n",
			cliui.NameStyle.Render(fmt.Sprintf("%d %s", e.Season, e.GP)),
			cliui.ValueStyle.Render(e.Driver),
			cliui.DimStyle.Render(fmt.Sprintf("#%d", e.ID)),
		)
		for _, a := range e.Artifacts {
			fmt.Fprintf(w, "      %s  %s\n",
				cliui.KeyStyle.Render(string(a.Name)),
				cliui.DimStyle.Render(a.Path),
			)
		}
	}
	fmt.Fprintln(w)

	return nil
}

func list(ctx context.Context, store storage.Driver) ([]eventListing, error) {
	events, err := store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	listing := make([]eventListing, 0, len(events))
	for _, e := range events {
		artifacts, err := store.ListArtifacts(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("listing artifacts of event %d: %w", e.ID, err)
		}
		listing = append(listing, eventListing{Event: e, Artifacts: artifacts})
	}
	return listing, nil
}
