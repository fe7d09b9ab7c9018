package main

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/mabego/chat-mysql/internal/migrations"
)

var errNoDSN = errors.New("a data source name is required (--dsn)")

type options struct {
	dsn string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the chat database schema",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "MariaDB data source name")

	root.AddCommand(upCmd(opts), downCmd(opts), versionCmd(opts))

	return root
}

func upCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(opts, func(m *migrate.Migrate) error {
				if err := migrations.Up(m); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			})
		},
	}
}

func downCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(opts, func(m *migrate.Migrate) error {
				if err := migrations.Down(m); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reverted one migration.")
				return nil
			})
		},
	}
}

func versionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(opts, func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}
}

// withMigrator opens the database, runs fn and releases both the migrator and the pool.
func withMigrator(opts *options, fn func(m *migrate.Migrate) error) error {
	if opts.dsn == "" {
		return errNoDSN
	}

	db, err := sql.Open("mysql", opts.dsn)
	if err != nil {
		return fmt.Errorf("database pool initialization: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("database connection: %w", err)
	}

	m, err := migrations.New(db)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	return fn(m)
}
