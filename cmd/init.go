package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"chatkeep/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory and a starter chatkeep.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("init failed: %w", err)
		}

		path := filepath.Join(cfg.DataDir, config.FileName)
		wrote, err := config.WriteStarter(path, config.Starter(cfg.DataDir))
		if err != nil {
			return fmt.Errorf("init failed: %w", err)
		}
		if !wrote {
			fmt.Fprintf(out, "Already initialized: %s exists\n", path)
			return nil
		}

		fmt.Fprintf(out, "Initialized chatkeep in %s\n", cfg.DataDir)
		fmt.Fprintf(out, "Config written to %s\n", path)
		return nil
	},
}
