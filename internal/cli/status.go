package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the state of a discussion session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd.Context())
			if err != nil {
				return err
			}

			summary, err := a.readService().Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:    %s\n", summary.SessionID)
			fmt.Fprintf(out, "Topic:      %s\n", summary.Topic)
			fmt.Fprintf(out, "Status:     %s\n", summary.Status)
			fmt.Fprintf(out, "Created:    %s\n", summary.CreatedAt)
			fmt.Fprintf(out, "Updated:    %s\n", summary.UpdatedAt)
			if summary.CompletedAt != nil {
				fmt.Fprintf(out, "Completed:  %s\n", *summary.CompletedAt)
			}
			fmt.Fprintf(out, "Rounds:     %d\n", summary.RoundsCount)
			fmt.Fprintf(out, "Issues:     %d\n", summary.IssuesCount)
			fmt.Fprintf(out, "Solutions:  %d\n", summary.SolutionsCount)
			return nil
		},
	}
}
