package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newDiscussCmd() *cobra.Command {
	var (
		companySize int
		industry    string
		stage       string
		challenges  string
		extra       []string
		reportPath  string
	)

	cmd := &cobra.Command{
		Use:   "discuss <topic>",
		Short: "Run a full discussion on a topic and write the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]

			orgContext, err := buildOrgContext(companySize, industry, stage, challenges, extra)
			if err != nil {
				return err
			}

			a, err := wireApp(cmd.Context())
			if err != nil {
				return err
			}

			svc, err := a.discussionService()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Starting discussion: %s\n", topic)
			if len(orgContext) > 0 {
				fmt.Fprintf(out, "Organization context: %v\n", orgContext)
			}

			session, err := svc.Start(cmd.Context(), topic, orgContext)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Discussion completed\n")
			fmt.Fprintf(out, "Session ID: %s\n", session.ID)

			report, err := svc.Report(cmd.Context(), session.ID)
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			path := reportPath
			if path == "" {
				path = defaultReportPath(session.ID)
			}
			if err := writeReport(path, report); err != nil {
				return err
			}

			fmt.Fprintf(out, "Report written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().IntVar(&companySize, "company-size", 0, "organization headcount")
	cmd.Flags().StringVar(&industry, "industry", "", "industry the organization operates in")
	cmd.Flags().StringVar(&stage, "stage", "", "development stage of the organization")
	cmd.Flags().StringVar(&challenges, "challenges", "", "current challenges, comma separated")
	cmd.Flags().StringArrayVar(&extra, "context", nil, "extra context as key=value, repeatable")
	cmd.Flags().StringVarP(&reportPath, "output", "o", "", "report output path (default reports/report_<session-id>.md)")

	return cmd
}

func buildOrgContext(companySize int, industry, stage, challenges string, extra []string) (map[string]string, error) {
	orgContext := map[string]string{}

	if companySize > 0 {
		orgContext["company_size"] = strconv.Itoa(companySize)
	}
	if industry != "" {
		orgContext["industry"] = industry
	}
	if stage != "" {
		orgContext["development_stage"] = stage
	}
	if challenges != "" {
		parts := strings.Split(challenges, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		orgContext["current_challenges"] = strings.Join(parts, ", ")
	}

	for _, pair := range extra {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --context value %q, expected key=value", pair)
		}
		orgContext[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if len(orgContext) == 0 {
		return nil, nil
	}
	return orgContext, nil
}
