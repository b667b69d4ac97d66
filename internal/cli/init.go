// Package cli provides the initialization shared by cmd/fuellog and
// cmd/fuellog-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fuellog/internal/config"
	applog "fuellog/internal/log"
	"fuellog/internal/sheets"
	gsheet "fuellog/internal/sheets/google"
	"fuellog/internal/suggest"
)

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// SetupLogger builds the process logger at level and installs it as the
// slog default.
func SetupLogger(level, component string) (*applog.Logger, error) {
	lvl, err := applog.ParseLevel(level)
	logger := applog.New(applog.Config{Level: lvl, Component: component, Output: os.Stdout})
	applog.SetDefault(logger)
	return logger, err
}

// LoadAndValidateConfig reads the environment and validates the result.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap loads .env and the validated configuration, then installs the
// process logger for component.
func Bootstrap(component string) (*config.Config, *applog.Logger, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, nil, err
	}
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := SetupLogger(cfg.LogLevel, component)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// NewExporter connects to the configured spreadsheet and makes sure it has
// a header row. Without a spreadsheet id it returns sheets.Disabled.
func NewExporter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.EntryExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.InfoContext(ctx, "Spreadsheet sync disabled, no GOOGLE_SPREADSHEET_ID provided")
		return sheets.Disabled{}, nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("prepare sheet header: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}

// NewSuggestionGateway selects the suggestion provider and failure policy.
func NewSuggestionGateway(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*suggest.Gateway, error) {
	policy, err := suggest.ParsePolicy(cfg.SuggestPolicy)
	if err != nil {
		return nil, err
	}

	var gen suggest.Generator = suggest.Disabled{}
	if cfg.SuggestProvider == "gemini" {
		g, err := suggest.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("initialize Gemini client: %w", err)
		}
		gen = g
	}

	logger.InfoContext(ctx, "Price suggestions configured",
		"provider", cfg.SuggestProvider,
		"policy", policy,
		"timeout", cfg.SuggestTimeout)
	return suggest.New(gen,
		suggest.WithPolicy(policy),
		suggest.WithTimeout(cfg.SuggestTimeout),
		suggest.WithLogger(logger.WithComponent(applog.ComponentSuggest))), nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
