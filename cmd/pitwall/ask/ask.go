// Package askcmder provides the ask command, a one-shot terminal version of
// the analysis pitwall serves over HTTP.
package askcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/pitwall/cmd/pitwall/stack"
	"github.com/papercomputeco/pitwall/pkg/cliui"
	"github.com/papercomputeco/pitwall/pkg/config"
	"github.com/papercomputeco/pitwall/pkg/dispatch"
	"github.com/papercomputeco/pitwall/pkg/llm"
	"github.com/papercomputeco/pitwall/pkg/logger"
)

type askCommander struct {
	flags askFlags

	debug     bool
	configDir string
	viper     *viper.Viper
	logger    *slog.Logger

	// remote is the base URL of a running pitwall server, empty to answer locally.
	remote string

	// caller replaces the configured LLM provider in tests.
	caller llm.CallFunc
}

type askFlags struct {
	backend, sqlitePath, postgresDSN, mediaDir string
	provider, model, llmBaseURL, telemetryURL  string
}

var askFlagKeys = []string{
	config.FlagStorageBackend,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagMediaDir,
	config.FlagLLMProvider,
	config.FlagLLMModel,
	config.FlagLLMBaseURL,
	config.FlagTelemetryURL,
}

var stageMessages = map[dispatch.Stage]string{
	dispatch.StageAnalyzing:   "Analyzing question",
	dispatch.StageGenerating:  "Generating charts",
	dispatch.StageSummarizing: "Writing summary",
}

const askLongDesc string = `Ask a question about a driver's race or qualifying session.

The question is parsed for the driver, season and Grand Prix, every chart is
generated (or reused from the cache) and a short summary is printed together
with the chart paths.

Examples:
  pitwall ask "How did Colapinto do at Monza in 2024?"
  pitwall ask --provider ollama "franco baku 2024"
  pitwall ask --remote http://localhost:8081 "colapinto imola 2025"`

const askShortDesc string = "Ask a question about a driver"

func NewAskCmd() *cobra.Command {
	return newAskCmd(&askCommander{})
}

func newAskCmd(cmder *askCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.viper, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(cmder.viper, cmd, config.Flags, askFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageBackend, &f.backend)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagMediaDir, &f.mediaDir)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProvider, &f.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &f.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMBaseURL, &f.llmBaseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagTelemetryURL, &f.telemetryURL)
	cmd.Flags().StringVar(&cmder.remote, "remote", "", "Ask a running pitwall server instead of answering locally")

	return cmd
}

func (c *askCommander) run(ctx context.Context, w io.Writer, question string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Logs go to stderr, and only with --debug, so the spinner lines stay readable.
	out := logger.WithWriter(io.Discard)
	if c.debug {
		out = logger.WithWriter(os.Stderr)
	}
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), out)

	if c.remote != "" {
		return c.runRemote(ctx, w, question)
	}

	settings, err := stack.LoadSettings(c.viper, c.configDir)
	if err != nil {
		return err
	}
	// One question per run, there is nothing to throttle.
	settings.Throttle = 0

	steps := cliui.NewSteps(w)
	opts := []stack.Option{
		stack.WithLogger(c.logger),
		stack.WithProgress(func(s dispatch.Stage) { steps.Next(stageMessages[s]) }),
	}
	if c.caller != nil {
		opts = append(opts, stack.WithCaller(c.caller))
	}

	fmt.Fprintln(w)
	var st *stack.Stack
	err = cliui.Step(w, "Opening "+settings.Storage.Backend+" store", func() error {
		var err error
		st, err = stack.New(ctx, settings, opts...)
		return err
	})
	if err != nil {
		return err
	}
	defer st.Close()

	reply, err := st.Dispatcher.Handle(ctx, dispatch.Query{SessionID: "cli", Text: question})
	steps.Done(err)
	if err != nil {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.WarnStyle.Render(dispatch.Message(err)))
		return err
	}

	summary, err := cliui.RenderMarkdown(reply.Summary)
	if err != nil {
		c.logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprintln(w, summary)

	fmt.Fprintf(w, "  %s\n\n", cliui.HeaderStyle.Render("Charts"))
	for _, a := range reply.Artifacts {
		fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render(string(a.Kind)), cliui.ValueStyle.Render(a.Path))
	}
	fmt.Fprintln(w)

	return nil
}
