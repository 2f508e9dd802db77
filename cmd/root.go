// Package cmd implements the formpilot command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinemde/formpilot/internal/config"
	"github.com/martinemde/formpilot/internal/observability"
)

// dependencies are the collaborators a command tree is built with. Tests
// swap them for fakes.
type dependencies struct {
	newAssistant AssistantFactory
	newLogger    func(config.LoggerConfig) (*zap.Logger, error)
}

func defaultDependencies() dependencies {
	return dependencies{
		newAssistant: newClient,
		newLogger:    observability.NewLogger,
	}
}

// NewRootCommand builds a fresh command tree. Without a subcommand the root
// behaves like `run`.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDependencies())
}

func newRootCommand(deps dependencies) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "formpilot",
		Short: "formpilot drives a computer-use assistant toward an objective.",
		Long: `formpilot asks a computer-use assistant for one UI action at a time,
executes it against a simulated display and reports the observation back
until the assistant finishes or the iteration cap is reached.

Examples:
  formpilot --objective "Fill the contact form with Name: John Doe, Email: john@example.com"
  formpilot run --objective "Log in with username 'admin' and password 'test123'" --no-zoom
  formpilot run --model claude-sonnet-4-5-20250929 --max-iterations 20`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObjective(cmd, deps, cfgFile)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./formpilot.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	addRunFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd(deps, &cfgFile), newVersionCmd())
	return rootCmd
}

// Execute runs the command tree for os.Args. Unsuccessful runs have already
// printed their result and are returned without further output.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrRunUnsuccessful) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}
