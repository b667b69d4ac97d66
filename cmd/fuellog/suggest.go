package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fuellog/internal/cli"
	"fuellog/internal/core"
	applog "fuellog/internal/log"
	"fuellog/internal/suggest"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest FUEL_TYPE",
	Short: "Ask the configured provider for a fuel price suggestion",
	Long: `Sends the historical and market data files to the suggestion provider
and prints the validated response as JSON. The price table is not changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().String("historical", "", "File with historical price data (JSON)")
	suggestCmd.Flags().String("market", "", "File with current market data (JSON)")
	_ = suggestCmd.MarkFlagRequired("historical")
	_ = suggestCmd.MarkFlagRequired("market")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := cli.Bootstrap(applog.ComponentSuggest)
	if err != nil {
		return err
	}

	historicalPath, _ := cmd.Flags().GetString("historical")
	marketPath, _ := cmd.Flags().GetString("market")
	historical, err := os.ReadFile(historicalPath)
	if err != nil {
		return fmt.Errorf("read historical data: %w", err)
	}
	market, err := os.ReadFile(marketPath)
	if err != nil {
		return fmt.Errorf("read market data: %w", err)
	}

	gateway, err := cli.NewSuggestionGateway(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	resp, err := gateway.Suggest(cmd.Context(), suggest.Request{
		FuelType:          core.FuelType(args[0]),
		HistoricalData:    string(historical),
		CurrentMarketData: string(market),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
