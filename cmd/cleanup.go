package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "delete sessions not updated for this many days, 0 deletes all (default retention_days)")
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete sessions older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		days := cleanupDays
		if !cmd.Flags().Changed("days") {
			days = cfg.RetentionDays
		}
		if days < 0 {
			return fmt.Errorf("--days must not be negative")
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := st.Cleanup(cmd.Context(), days)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d session(s)\n", deleted)
		return nil
	},
}
