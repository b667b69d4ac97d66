package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fuellog",
	Short: "Record fuel purchases and report consumption",
	Long: `fuellog records fuel purchases, derives quantity, amount and efficiency
for each entry and serves the history over a JSON API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, suggestCmd, seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
