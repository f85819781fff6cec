package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/app"
)

func newSuggestCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <session-id>",
		Short: "Show proactive suggestions for a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := container.Store.Load(args[0])
			if err != nil {
				return err
			}
			suggestions, err := container.Engine.Suggestions(session)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(suggestions) == 0 {
				fmt.Fprintln(out, "No suggestions right now.")
				return nil
			}
			for _, s := range suggestions {
				fmt.Fprintf(out, "[%s] %s - %s (%.2f)\n", s.Type, s.Description, s.Benefit, s.Confidence)
			}
			return nil
		},
	}
}
