// Точка входа доски: cobra-команды serve, migrate и version.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "todoboard",
	Short:        "Server-rendered to-do board",
	Long:         `A to-do bulletin board: posts with comments, search, paging and completion status.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("TODOBOARD_CONFIG"), "path to YAML config file")
}

// Execute запускает корневую команду.
func Execute() error {
	return rootCmd.Execute()
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
