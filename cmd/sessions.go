package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"chatkeep/internal/store"
)

var (
	sessionsLimit int
	sessionsJSON  bool
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(summaryCmd)

	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 50, "max sessions to show (0 = all)")
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "print summaries as JSON")
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.ListAll(cmd.Context())
		if err != nil {
			return err
		}
		if sessionsLimit > 0 && len(sessions) > sessionsLimit {
			sessions = sessions[:sessionsLimit]
		}

		out := cmd.OutOrStdout()
		if sessionsJSON {
			return writeSummariesJSON(out, sessions)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions yet. Run 'chatkeep new' to start one")
			return nil
		}
		printSessionTable(out, sessions)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := st.Load(cmd.Context(), args[0])
		if err != nil {
			return sessionErr(args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session:  %s\n", sess.ID)
		fmt.Fprintf(out, "Title:    %s\n", sess.Title)
		fmt.Fprintf(out, "Created:  %s\n", sess.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Updated:  %s\n", sess.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Messages: %d\n\n", sess.MessageCount)

		for _, m := range sess.Messages {
			fmt.Fprintf(out, "[%s] %s %s\n", m.Timestamp.Local().Format("15:04:05"), m.Role, truncateShow(m.Content, 200))
			if m.Type == store.MessageImage {
				fmt.Fprintf(out, "  image: %s\n", m.ImageURL)
			}
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <session-id>",
	Short: "Print a session's metadata without its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := st.Summarize(cmd.Context(), args[0])
		if err != nil {
			return sessionErr(args[0], err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func printSessionTable(out io.Writer, sessions []*store.Session) {
	fmt.Fprintf(out, "%-36s %-16s %-6s %s\n", "ID", "UPDATED", "MSGS", "TITLE")
	fmt.Fprintln(out, "─────────────────────────────────────────────────────────────────────────────────")
	for _, s := range sessions {
		fmt.Fprintf(out, "%-36s %-16s %-6d %s\n",
			s.ID,
			humanize.Time(s.UpdatedAt),
			s.MessageCount,
			truncateShow(s.Title, 50),
		)
	}
}

func writeSummariesJSON(out io.Writer, sessions []*store.Session) error {
	summaries := lo.Map(sessions, func(s *store.Session, _ int) store.Summary {
		return s.Summary()
	})
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

func truncateShow(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
