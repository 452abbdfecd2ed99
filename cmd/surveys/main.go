package main

import (
	"fmt"
	"os"
	"surveys/config"
	"surveys/internal/app"
	"surveys/internal/logger"

	"github.com/spf13/cobra"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "surveys",
	Short: "HVAC equipment survey service",
	Long: `surveys stores equipment survey templates and completed surveys.

Templates are trees of typed fields. They can be exported to and imported
from spreadsheets so field lists can be edited outside the application.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.InitConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, cacheCmd)
	rootCmd.AddCommand(exportCmd, importCmd, blankSheetCmd)
}

// withApp builds the app for a one-shot command and closes it afterwards.
func withApp(fn func(a *app.App) error) error {
	a, err := app.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
