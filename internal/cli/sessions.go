package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored discussion sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(cmd.Context())
			if err != nil {
				return err
			}

			sessions, err := a.readService().List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found")
				return nil
			}

			fmt.Fprintf(out, "Sessions (%d):\n\n", len(sessions))
			for _, s := range sessions {
				fmt.Fprintf(out, "%s\n", s.SessionID)
				fmt.Fprintf(out, "  Topic:   %s\n", s.Topic)
				fmt.Fprintf(out, "  Status:  %s\n", s.Status)
				fmt.Fprintf(out, "  Created: %s\n", s.CreatedAt)
				fmt.Fprintf(out, "  Rounds:  %d\n\n", s.RoundsCount)
			}
			return nil
		},
	}
}
