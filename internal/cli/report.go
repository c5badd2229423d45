package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Render the report of a completed session to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd.Context())
			if err != nil {
				return err
			}

			report, err := a.readService().Report(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = defaultReportPath(args[0])
			}
			if err := writeReport(path, report); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "report output path (default reports/report_<session-id>.md)")

	return cmd
}

func defaultReportPath(sessionID string) string {
	return filepath.Join("reports", fmt.Sprintf("report_%s.md", sessionID))
}

func writeReport(path, report string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
