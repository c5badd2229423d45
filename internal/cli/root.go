package cli

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "roundtable",
		Short:         "Run multi-persona discussions from the terminal",
		Long:          "roundtable convenes a panel of product-management personas around a topic, runs the phased discussion locally, and stores the session so you can read the status and the final report.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newDiscussCmd(),
		newStatusCmd(),
		newReportCmd(),
		newSessionsCmd(),
		newHealthCmd(),
	)

	return rootCmd
}
