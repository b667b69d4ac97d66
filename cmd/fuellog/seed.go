package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fuellog/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Inspect reference data seed files",
}

var seedCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a TOML seed file and summarize its contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := seed.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d prices, %d vehicles, %d drivers\n",
			args[0], len(data.Prices), len(data.Vehicles), len(data.Drivers))
		for _, p := range data.Prices {
			fmt.Fprintf(out, "  %-8s %.2f\n", p.Name, p.Price)
		}
		return nil
	},
}

func init() {
	seedCmd.AddCommand(seedCheckCmd)
}
