// Package cli wires the cobra command tree. The CLI is the orchestration
// surface around the command-understanding core; the core itself has no
// CLI dependency.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}

	parseCmd := newParseCommand(container)

	root := &cobra.Command{
		Use:   "parley [text]",
		Short: "Parley - conversational command understanding",
		Long:  "Parley turns natural-language utterances into structured, confidence-scored intents with session context.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			parseCmd.SetArgs(args)
			return parseCmd.ExecuteContext(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(parseCmd)
	root.AddCommand(newSuggestCommand(container))
	root.AddCommand(newSessionCommand(container))
	root.AddCommand(newVersionCommand())
	return root, nil
}
