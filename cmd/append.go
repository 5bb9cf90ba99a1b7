package cmd

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"chatkeep/internal/store"
)

var (
	appendRole         string
	appendType         string
	appendImageURL     string
	appendThumbnailURL string
)

func init() {
	rootCmd.AddCommand(appendCmd)

	appendCmd.Flags().StringVar(&appendRole, "role", string(store.RoleUser), "message author: user or assistant")
	appendCmd.Flags().StringVar(&appendType, "type", "", "message type: text (default) or image")
	appendCmd.Flags().StringVar(&appendImageURL, "image-url", "", "image location for --type image")
	appendCmd.Flags().StringVar(&appendThumbnailURL, "thumbnail-url", "", "thumbnail location for --type image")
}

var appendCmd = &cobra.Command{
	Use:   "append <session-id> [content]",
	Short: "Append a message to an existing session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		id := args[0]
		msg := store.NewMessage{
			Role:         store.Role(appendRole),
			Content:      strings.Join(args[1:], " "),
			Type:         store.MessageType(appendType),
			ImageURL:     appendImageURL,
			ThumbnailURL: appendThumbnailURL,
		}

		sess, err := st.AppendMessage(cmd.Context(), id, msg)
		if errors.Is(err, store.ErrPersist) && sess != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: message was not saved: %v\n", err)
			return err
		}
		if err != nil {
			return sessionErr(id, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Appended message %d to %s (%s)\n", sess.MessageCount, sess.ID, sess.Title)
		return nil
	},
}
