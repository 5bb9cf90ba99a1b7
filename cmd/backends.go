package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatkeep/internal/backend"
)

func init() {
	rootCmd.AddCommand(backendsCmd)
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List supported storage backends",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-8s %-44s %s\n", "TYPE", "OPTIONS", "DESCRIPTION")
		fmt.Fprintln(out, "──────────────────────────────────────────────────────────────────────────────────────────────")
		for _, b := range backend.ListTypes() {
			fmt.Fprintf(out, "%-8s %-44s %s\n", b.Type, b.Options, b.Description)
		}
	},
}
