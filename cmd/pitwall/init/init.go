// Package initcmder provides the init command for initializing a local
// .pitwall directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitwall/pkg/cliui"
	"github.com/papercomputeco/pitwall/pkg/config"
	"github.com/papercomputeco/pitwall/pkg/dotdir"
)

const dirName = ".pitwall"

const initLongDesc string = `Initialize a new .pitwall/ directory in the current working directory.

Creates a local .pitwall/ directory, with its media/ subdirectory and a
config.toml, that takes precedence over the default ~/.pitwall/ directory.
An existing config.toml is never overwritten.

Use --preset to write the LLM settings of a provider:
  openai      gpt-4o-mini through the OpenAI API
  anthropic   claude-haiku through the Anthropic API
  ollama      llama3.2 on a local Ollama

Examples:
  pitwall init
  pitwall init --preset ollama`

const initShortDesc string = "Initialize a local .pitwall/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if preset == "" {
				return nil
			}
			_, err := config.PresetConfig(preset)
			return err
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		"LLM preset to write ("+strings.Join(config.ValidPresetNames(), ", ")+")")

	return cmd
}

func runInit(w io.Writer, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir, err := dotdir.NewManager().Init(filepath.Join(cwd, dirName))
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	_, err = os.Stat(cfger.GetTarget())
	switch {
	case err == nil:
		fmt.Fprintf(w, "  %s Already initialized: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.NewDefaultConfig()
	if preset != "" {
		if cfg, err = config.PresetConfig(preset); err != nil {
			return err
		}
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Initialized %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(dir),
		cliui.DimStyle.Render("(llm: "+cfg.LLM.Provider+")"),
	)
	return nil
}
