package main

import (
	"fmt"
	"os"

	"fyers-trader/internal/cli"
	"fyers-trader/internal/config"
	"fyers-trader/internal/logging"
)

func main() {
	configDir := os.Getenv("FYERS_TRADER_CONFIG")

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
