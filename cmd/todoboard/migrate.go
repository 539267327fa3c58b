package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"todo-board/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long:  `Open the configured SQLite database, apply the schema and exit.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		path := databasePath(cfg)
		database, err := openDatabase(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer database.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date (%s)\n", color.GreenString("✓"), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
