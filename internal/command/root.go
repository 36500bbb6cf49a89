package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "ledgerctl"

// NewRootCmd builds the operator CLI.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Operate a WhatsApp message ledger",
		Long:          "ledgerctl inspects and repairs the contact and message ledger kept by ledgerd.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "path to config file (default ~/.wppledger/config.toml)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewMigrateCmd(),
		NewResolveCmd(),
		NewContactCmd(),
		NewContactsCmd(),
		NewMessagesCmd(),
		NewSetPhoneCmd(),
		NewStatusCmd(),
	)

	return cmd
}
