package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/app"
	"github.com/parley-ai/parley/internal/domain"
)

func newSessionCommand(container *app.Container) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage stored sessions",
	}

	sessionCmd.AddCommand(
		newSessionNewCommand(container),
		newSessionShowCommand(container),
	)
	return sessionCmd
}

func newSessionNewCommand(container *app.Container) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start and persist a fresh session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				user = container.Config.User.DefaultUserID
			}
			session := container.Engine.NewSession(user)
			if err := container.Store.Save(session); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User id (defaults to configured user)")
	return cmd
}

func newSessionShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a stored session's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := container.Store.Load(args[0])
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), session)
			return nil
		},
	}
}

func printSession(out io.Writer, session *domain.Session) {
	fmt.Fprintf(out, "Session %s (user %s, started %s)\n",
		session.ID, session.UserID, session.StartTime.Format("2006-01-02 15:04:05"))
	if len(session.History) == 0 {
		fmt.Fprintln(out, "No commands recorded yet.")
		return
	}
	for _, record := range session.History {
		status := "ok"
		if !record.Result.Success {
			status = "failed"
		}
		fmt.Fprintf(out, "%s  %-20s %s (%.2f)\n",
			record.Timestamp.Format("15:04:05"),
			record.Command.Intent.Type,
			status,
			record.Command.Intent.Confidence)
	}
}
