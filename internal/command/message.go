package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matheus3301/wppledger/internal/ledger"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <message_id> <status>",
		Short: "Set the delivery status of a stored message",
		Long:  "Set the delivery status of a stored message. Unknown message ids are reported but not an error.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = ctx.Close() }()

			messageID, status := args[0], args[1]
			if status == "" {
				return writeCommandError(cmd, errors.New("status is required"))
			}
			if err := ctx.Ledger.UpdateStatus(cmd.Context(), messageID, status); err != nil {
				return writeCommandError(cmd, err)
			}
			m, err := ctx.Ledger.GetMessage(cmd.Context(), messageID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"messageId": messageID,
					"status":    status,
					"found":     m != nil,
				})
			}
			if m == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "no message %s; nothing updated\n", messageID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", messageID, m.Status)
			return nil
		},
	}
}

// NewMessagesCmd creates the messages command.
func NewMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages <jid>",
		Short: "List a contact's messages, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = ctx.Close() }()

			limit, _ := cmd.Flags().GetInt("limit")
			before, _ := cmd.Flags().GetInt64("before")

			c, err := ctx.Ledger.GetContact(cmd.Context(), args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if c == nil {
				return writeCommandError(cmd, fmt.Errorf("%w: %s", ledger.ErrContactNotFound, args[0]))
			}

			msgs, err := ctx.Ledger.ListMessages(cmd.Context(), c.ID, before, limit)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				out := make([]map[string]any, 0, len(msgs))
				for _, m := range msgs {
					out = append(out, map[string]any{
						"messageId":   m.MessageID,
						"direction":   m.Direction,
						"messageType": m.MessageType,
						"content":     m.Content,
						"mediaPath":   m.MediaPath,
						"timestamp":   m.Timestamp,
						"status":      m.Status,
					})
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}

			for _, m := range msgs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-3s %-9s %s  %s\n",
					formatMillis(m.Timestamp), m.Direction, m.Status, m.MessageID, m.Content)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 50, "maximum number of messages")
	cmd.Flags().Int64("before", 0, "only messages older than this unix-millis timestamp")
	return cmd
}
