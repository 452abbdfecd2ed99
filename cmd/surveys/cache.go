package main

import (
	"fmt"
	"surveys/internal/database"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the template cache",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Empty every cache database",
	Long: `Empties the template cache and the event database. Useful after editing
templates directly in the database. Does nothing when no cache is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.FlushAllCaches(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "flushed caches")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheFlushCmd)
}
