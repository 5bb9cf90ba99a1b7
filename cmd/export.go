package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"chatkeep/internal/export"
)

var (
	exportFormat string
	exportCopy   bool
	exportOut    string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "", "json, yaml or markdown (default from --out extension, else json)")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "copy the export to the clipboard")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "write the export to a file")
}

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session with statistics as JSON, YAML or Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := export.DetectFormat(exportOut)
		if exportFormat != "" {
			f, err := export.ParseFormat(exportFormat)
			if err != nil {
				return err
			}
			format = f
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := st.Load(cmd.Context(), args[0])
		if err != nil {
			return sessionErr(args[0], err)
		}

		var buf bytes.Buffer
		if err := export.Render(&buf, export.Build(sess, time.Now()), format); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportCopy {
			if err := clipboard.WriteAll(buf.String()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not copy to clipboard: %v\n", err)
			} else {
				fmt.Fprintln(out, "Export copied to clipboard!")
			}
		}

		if exportOut != "" {
			outPath := exportOut
			if !filepath.IsAbs(outPath) {
				dir, _ := os.Getwd()
				outPath = filepath.Join(dir, outPath)
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Fprintf(out, "Session exported to %s\n", outPath)
		}

		if !exportCopy && exportOut == "" {
			_, err := out.Write(buf.Bytes())
			return err
		}
		return nil
	},
}
