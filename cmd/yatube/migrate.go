package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		db, err := a.openPostgres()
		if err != nil {
			return err
		}
		defer db.Close(context.Background())
		return db.MigrationsUp()
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		db, err := a.openPostgres()
		if err != nil {
			return err
		}
		defer db.Close(context.Background())
		return db.MigrationsDown(migrateDownSteps)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		db, err := a.openPostgres()
		if err != nil {
			return err
		}
		defer db.Close(context.Background())

		version, dirty, err := db.MigrationVersion()
		if err != nil {
			return err
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d%s\n", version, suffix)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVarP(&migrateDownSteps, "steps", "n", 1, "number of migrations to roll back, 0 for all")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
