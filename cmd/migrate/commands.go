package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

// migrateOptions are the flags shared by every subcommand.
type migrateOptions struct {
	// Dir reads migrations from disk instead of the ones embedded in the binary.
	Dir string
}

// diskDir is where create and validate work when no -dir is given.
func (o *migrateOptions) diskDir() string {
	if o.Dir == "" {
		return migrate.DefaultDir
	}
	return o.Dir
}

func newRootCommand(logg *logger.Logger) *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the cart_documents schema",
		Long: `migrate applies the goose migrations that create the cart_documents table
holding signed-in shoppers' carts and wishlists.

Commands that touch the database read STOREFRONT_DB_DSN from the environment
or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "migrations directory (embedded migrations when empty)")

	cmd.AddCommand(
		newGooseCommand(logg, opts, "up", "Apply all pending migrations"),
		newGooseCommand(logg, opts, "down", "Roll back the latest migration"),
		newGooseCommand(logg, opts, "status", "Show applied and pending migrations"),
		newToCommand(logg, opts),
		newCheckCommand(logg, opts),
		newCreateCommand(opts),
		newValidateCommand(opts),
	)
	return cmd
}

func newGooseCommand(logg *logger.Logger, opts *migrateOptions, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), logg, name, func(ctx context.Context, _ *db.Client, sqlDB *sql.DB) error {
				return migrate.Run(ctx, sqlDB, opts.Dir, name)
			})
		},
	}
}

func newToCommand(logg *logger.Logger, opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "to <version>",
		Short:   "Migrate up or down to a version (YYYYMMDDHHMMSS)",
		Example: "  migrate to 20261001120000",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), logg, "to", func(ctx context.Context, _ *db.Client, sqlDB *sql.DB) error {
				return migrate.MigrateToVersion(ctx, sqlDB, opts.Dir, args[0])
			})
		},
	}
}

// newCheckCommand reports whether the document table exists, for deploy gates.
func newCheckCommand(logg *logger.Logger, opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail unless the cart_documents table exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), logg, "check", func(ctx context.Context, client *db.Client, _ *sql.DB) error {
				table := models.CartDocument{}.TableName()
				if !client.DB().WithContext(ctx).Migrator().HasTable(&models.CartDocument{}) {
					return fmt.Errorf("table %s is missing; run migrate up", table)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "table %s present\n", table)
				return nil
			})
		},
	}
}

func newCreateCommand(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "create <name>",
		Short:   "Write a new timestamped SQL migration",
		Example: "  migrate create add_cart_documents_updated_at_index",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(opts.diskDir(), args[0])
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
}

func newValidateCommand(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration file names and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.ValidateDir(opts.diskDir()); err != nil {
				return fmt.Errorf("validate migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations valid")
			return nil
		},
	}
}

// withDatabase loads configuration, connects and runs fn.
func withDatabase(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context, *db.Client, *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": name})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database handle: %w", err)
	}
	if err := fn(ctx, client, sqlDB); err != nil {
		logg.Error(ctx, "migrate "+name+" failed", err)
		return err
	}
	logg.Info(ctx, "migrate "+name+" done")
	return nil
}
