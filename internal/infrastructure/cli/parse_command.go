package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/app"
	"github.com/parley-ai/parley/internal/domain"
)

func newParseCommand(container *app.Container) *cobra.Command {
	var (
		user      string
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Parse an utterance into a structured intent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			session, err := resolveSession(container, user, sessionID)
			if err != nil {
				return err
			}
			intent, err := container.Engine.ProcessCommand(text, session)
			if err != nil {
				return err
			}
			return renderIntent(cmd.OutOrStdout(), container, intent, asJSON)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User id (defaults to configured user)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Existing session id to parse against")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the intent as JSON")
	return cmd
}

func resolveSession(container *app.Container, user, sessionID string) (*domain.Session, error) {
	if sessionID != "" {
		return container.Store.Load(sessionID)
	}
	if user == "" {
		user = container.Config.User.DefaultUserID
	}
	return container.Engine.NewSession(user), nil
}

func renderIntent(out io.Writer, container *app.Container, intent domain.Intent, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(intent, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Intent:     %s\n", intent.Type)
	fmt.Fprintf(out, "Confidence: %.2f\n", intent.Confidence)
	for _, entity := range intent.Entities {
		fmt.Fprintf(out, "Entity:     %s = %v (%.2f)\n", entity.Type, entity.Value, entity.Confidence)
	}
	if container.Parser.IsAmbiguous(intent) {
		fmt.Fprintf(out, "Follow-up:  %s\n", container.Parser.ClarificationQuestion(intent))
	}
	return nil
}
