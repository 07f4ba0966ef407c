// Package main provides the mini command: an interactive coding agent that
// works inside a workspace directory.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options holds the CLI flags.
type options struct {
	// Debug writes a debug log and per-request artifacts.
	Debug bool
	// Provider overrides llm.current_provider.
	Provider string
	// Model overrides the provider's model.
	Model string
	// ConfigPath replaces ~/.config/mini/config.json.
	ConfigPath string
	// Workspace is the directory tools operate in. Defaults to the
	// working directory.
	Workspace string
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "mini",
		Short:        "mini - a minimal coding agent for the terminal",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	applyFlags(cmd.Flags(), opts)
	return cmd
}

func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.BoolVar(&opts.Debug, "debug", false, "Write a debug log and request artifacts under ~/.config/mini")
	flags.StringVarP(&opts.Provider, "provider", "p", "", "Provider variant to use (e.g. openai, anthropic, gemini)")
	flags.StringVarP(&opts.Model, "model", "m", "", "Model for the current session")
	flags.StringVar(&opts.ConfigPath, "config", "", "Path to the config file")
	flags.StringVarP(&opts.Workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
}
