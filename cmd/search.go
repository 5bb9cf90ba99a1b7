package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchJSON bool

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print matching summaries as JSON")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find sessions whose title or messages contain the query (case-insensitive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		query := strings.Join(args, " ")

		// A blank query would match every session.
		if strings.TrimSpace(query) == "" {
			if searchJSON {
				fmt.Fprintln(out, "[]")
				return nil
			}
			fmt.Fprintln(out, "No query given")
			return nil
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		matches, err := st.Search(cmd.Context(), query)
		if err != nil {
			return err
		}

		if searchJSON {
			return writeSummariesJSON(out, matches)
		}
		if len(matches) == 0 {
			fmt.Fprintf(out, "No sessions match %q\n", query)
			return nil
		}
		printSessionTable(out, matches)
		return nil
	},
}
