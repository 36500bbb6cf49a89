package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheus3301/wppledger/internal/ledger"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <jid>",
		Short: "Resolve an identifier to a contact id, creating the contact if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = ctx.Close() }()

			var phone, name *string
			if cmd.Flags().Changed("phone") {
				v, _ := cmd.Flags().GetString("phone")
				phone = &v
			}
			if cmd.Flags().Changed("name") {
				v, _ := cmd.Flags().GetString("name")
				name = &v
			}

			id, err := ctx.Ledger.Resolve(cmd.Context(), args[0], phone, name)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"jid":       args[0],
					"contactId": id,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", id)
			return nil
		},
	}

	cmd.Flags().String("phone", "", "phone hint for the contact")
	cmd.Flags().String("name", "", "display name hint for the contact")
	return cmd
}

// NewContactCmd creates the contact command.
func NewContactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contact <jid>",
		Short: "Show a stored contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = ctx.Close() }()

			c, err := ctx.Ledger.GetContact(cmd.Context(), args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if c == nil {
				return writeCommandError(cmd, fmt.Errorf("%w: %s", ledger.ErrContactNotFound, args[0]))
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(contactJSON(c))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:        %d\n", c.ID)
			fmt.Fprintf(out, "jid:       %s\n", c.JID)
			fmt.Fprintf(out, "phone:     %s\n", orDash(c.Phone))
			fmt.Fprintf(out, "name:      %s\n", orDash(c.Name))
			fmt.Fprintf(out, "online:    %t\n", c.IsOnline)
			fmt.Fprintf(out, "last seen: %s\n", formatMillis(c.LastSeenAt))
			return nil
		},
	}
}

// NewContactsCmd creates the contacts command.
func NewContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List contacts, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = ctx.Close() }()

			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			contacts, err := ctx.Ledger.ListContacts(cmd.Context(), limit, offset)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				out := make([]map[string]any, 0, len(contacts))
				for i := range contacts {
					out = append(out, contactJSON(&contacts[i]))
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			for _, c := range contacts {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6d %-40s %-16s %s\n", c.ID, c.JID, orDash(c.Phone), orDash(c.Name))
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 100, "maximum number of contacts")
	cmd.Flags().Int("offset", 0, "number of contacts to skip")
	return cmd
}

// NewSetPhoneCmd creates the set-phone command.
func NewSetPhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-phone <jid> <phone>",
		Short: "Overwrite a contact's phone number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = ctx.Close() }()

			if err := ctx.Ledger.OverridePhone(cmd.Context(), args[0], args[1]); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"jid":   args[0],
					"phone": args[1],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "phone of %s set to %s\n", args[0], args[1])
			return nil
		},
	}
}

func contactJSON(c *ledger.Contact) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"jid":        c.JID,
		"phone":      c.Phone,
		"name":       c.Name,
		"profilePic": c.ProfilePic,
		"lastSeenAt": c.LastSeenAt,
		"isOnline":   c.IsOnline,
		"createdAt":  c.CreatedAt,
		"updatedAt":  c.UpdatedAt,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format(time.RFC3339)
}
