package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/meteo-core/internal/infrastructure/database"
)

func newMigrateCmd(configPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(configPath())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			return printMigrationStatus(cmd, a)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := openApp(configPath())
				if err != nil {
					return err
				}
				defer a.close()
				return printMigrationStatus(cmd, a)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := openApp(configPath())
				if err != nil {
					return err
				}
				defer a.close()

				if err := a.db.MigrateDown(cmd.Context()); err != nil {
					return fmt.Errorf("rolling back migration: %w", err)
				}
				return printMigrationStatus(cmd, a)
			},
		},
	)
	return cmd
}

func printMigrationStatus(cmd *cobra.Command, a *app) error {
	applied, pending, err := a.db.GetMigrationStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	writeMigrationStatus(cmd.OutOrStdout(), applied, pending)
	return nil
}

// writeMigrationStatus renders one line per migration.
func writeMigrationStatus(out io.Writer, applied []database.MigrationRecord, pending []database.Migration) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATUS\tAPPLIED AT")
	for _, r := range applied {
		fmt.Fprintf(tw, "%s\tapplied\t%s\n", r.Version, r.AppliedAt.Local().Format(time.DateTime))
	}
	for _, m := range pending {
		fmt.Fprintf(tw, "%s\tpending\t-\n", m.Version)
	}
	tw.Flush() //nolint:errcheck // best-effort terminal output
}
