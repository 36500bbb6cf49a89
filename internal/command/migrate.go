package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matheus3301/wppledger/internal/store"
)

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the schema on the configured backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			jsonMode, _ := cmd.Flags().GetBool("json")

			lk, err := acquireLock(cfg)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = lk.Release() }()

			results := map[string]*store.MigrateResult{}

			primary, err := store.OpenSQLite(cfg.PrimaryPath())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = primary.Close() }()
			if results["primary"], err = primary.Migrate(cmd.Context()); err != nil {
				return writeCommandError(cmd, fmt.Errorf("primary: %w", err))
			}

			// Unlike the daemon, an explicit migrate does not fall back
			// when the mirror is unreachable.
			if cfg.Mirror.Enabled {
				mirror, err := store.OpenPostgres(cmd.Context(), cfg.Mirror.DSN)
				if err != nil {
					return writeCommandError(cmd, fmt.Errorf("mirror: %w", err))
				}
				defer func() { _ = mirror.Close() }()
				if results["mirror"], err = mirror.Migrate(cmd.Context()); err != nil {
					return writeCommandError(cmd, fmt.Errorf("mirror: %w", err))
				}
			}

			if jsonMode {
				payload := map[string]any{}
				for name, r := range results {
					payload[name] = map[string]any{
						"version":      r.Version,
						"changed":      r.Changed,
						"columnsAdded": r.ColumnsAdded,
					}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
			}

			out := cmd.OutOrStdout()
			for _, name := range []string{"primary", "mirror"} {
				r, ok := results[name]
				if !ok {
					continue
				}
				state := "up to date"
				if r.Changed {
					state = "migrated"
				}
				fmt.Fprintf(out, "%s: %s (version %d)\n", name, state, r.Version)
				for _, col := range r.ColumnsAdded {
					fmt.Fprintf(out, "  added column %s\n", col)
				}
			}
			return nil
		},
	}
}
