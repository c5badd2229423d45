package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check storage and provider configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(cmd.Context())
			if err != nil {
				return err
			}

			h := a.readService().Health(cmd.Context())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:  %s\n", h.Status)
			fmt.Fprintf(out, "Storage: %s\n", h.Storage)

			names := make([]string, 0, len(h.Providers))
			for name := range h.Providers {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Fprintln(out, "Providers:")
			for _, name := range names {
				fmt.Fprintf(out, "  %s: %s\n", name, h.Providers[name])
			}

			if h.Status != "healthy" {
				return fmt.Errorf("system is unhealthy")
			}
			return nil
		},
	}
}
