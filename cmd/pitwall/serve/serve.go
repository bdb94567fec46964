// Package servecmder provides the serve command that runs the pitwall API
// server together with its MCP endpoint and Prometheus metrics.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/pitwall/api"
	mcpserver "github.com/papercomputeco/pitwall/api/mcp"
	"github.com/papercomputeco/pitwall/cmd/pitwall/stack"
	"github.com/papercomputeco/pitwall/pkg/config"
	"github.com/papercomputeco/pitwall/pkg/logger"
	"github.com/papercomputeco/pitwall/pkg/metrics"
)

type ServeCommander struct {
	flags serveFlags

	debug     bool
	logFile   string
	configDir string
	viper     *viper.Viper
	logger    *slog.Logger
}

type serveFlags struct {
	listen, backend, sqlitePath, postgresDSN, mediaDir string
	provider, model, llmBaseURL, telemetryURL          string
	throttle, eventStream, kafkaBrokers, kafkaTopic    string
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagStorageBackend,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagMediaDir,
	config.FlagLLMProvider,
	config.FlagLLMModel,
	config.FlagLLMBaseURL,
	config.FlagTelemetryURL,
	config.FlagThrottle,
	config.FlagEventStream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run the pitwall API server.

The server answers questions on POST /v1/queries, resolves single charts on
POST /v1/artifacts/resolve, serves rendered charts from /v1/media, exposes
Prometheus metrics on /metrics and MCP tools on /mcp.

Flags override PITWALL_* environment variables, which override config.toml.
With --log-file every record is also appended to the file as JSON.`

const serveShortDesc string = "Run the pitwall API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.viper, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(cmder.viper, cmd, config.Flags, serveFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageBackend, &f.backend)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagMediaDir, &f.mediaDir)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProvider, &f.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &f.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMBaseURL, &f.llmBaseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagTelemetryURL, &f.telemetryURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagThrottle, &f.throttle)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, &f.eventStream)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &f.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &f.kafkaTopic)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithSource(true),
			logger.WithWriter(f),
		))
	}

	settings, err := stack.LoadSettings(c.viper, c.configDir)
	if err != nil {
		return err
	}

	m := metrics.NewManager()

	st, err := stack.New(ctx, settings,
		stack.WithLogger(c.logger),
		stack.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	defer st.Close()

	mcpServer, err := mcpserver.NewServer(mcpserver.Config{
		Dispatcher: st.Dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: settings.Listen,
		MediaDir:   settings.MediaDir,
		Dispatcher: st.Dispatcher,
		Store:      st.Store,
		Metrics:    m,
		MCPHandler: mcpServer.Handler(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting API server",
		"listen", settings.Listen,
		"storage", settings.Storage.Backend,
		"media", settings.MediaDir,
		"llm", settings.LLM.Provider,
		"throttle", settings.Throttle.String(),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// main cancels ctx on SIGINT or SIGTERM.
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down", "reason", context.Cause(ctx))
		return server.Shutdown()
	}
}
