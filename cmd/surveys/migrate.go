package main

import (
	"fmt"
	"surveys/cmd/migration/seed"
	"surveys/internal/app"
	"surveys/internal/database"
	"surveys/internal/logger"

	"github.com/spf13/cobra"
)

var (
	rollbackSteps int
	seedFile      string
)

// Opening the database applies pending migrations, so "up" only has to open it.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg)
		if err != nil {
			return err
		}
		return db.Close()
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		reverted, err := database.Rollback(db.SQL, rollbackSteps, logger.New("main"))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", reverted)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		statuses, err := database.MigrationStatuses(db.SQL)
		if err != nil {
			return err
		}
		for _, status := range statuses {
			state := "pending"
			if status.Applied {
				state = "applied"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", state, status.ID)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create example survey templates",
	Long: `Creates the bundled example templates, or the templates in a YAML file
given with --file. Templates whose name already exists are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			log := logger.New("main")
			if seedFile != "" {
				return seed.SeedFile(a.Database.SQL, seedFile, log)
			}
			return seed.Seed(a.Database.SQL, a.Config, log)
		})
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back; 0 rolls back all")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML file of templates to seed")
}
