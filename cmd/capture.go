package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chatkeep/internal/capture"
)

var captureTitle string

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureTranscriptCmd)
	captureCmd.AddCommand(captureNoteCmd)
	captureCmd.AddCommand(captureFileCmd)

	captureTranscriptCmd.Flags().StringVar(&captureTitle, "title", "", "session title (default: derived from the first user message)")
	captureNoteCmd.Flags().StringVar(&captureTitle, "title", "", "session title (default: derived from the note)")
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Import conversations and notes as new sessions",
}

var captureTranscriptCmd = &cobra.Command{
	Use:   "transcript <path>",
	Short: "Import a .jsonl or text chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := capture.ImportTranscript(cmd.Context(), st, args[0], captureTitle)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Captured %d messages (%d skipped) → session %s\n", res.Imported, res.Skipped, res.Session.ID)
		return nil
	},
}

var captureNoteCmd = &cobra.Command{
	Use:   "note \"your note text\"",
	Short: "Store a note as a one-message session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := capture.ImportNote(cmd.Context(), st, captureTitle, strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Note saved → session %s\n", res.Session.ID)
		return nil
	},
}

var captureFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Store a text file's content as a one-message session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := capture.ImportFile(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "File captured → session %s\n", res.Session.ID)
		return nil
	},
}
