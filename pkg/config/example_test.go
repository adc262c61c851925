package config_test

import (
	"fmt"

	"github.com/wonny/aegis-backtest/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("DB Max Connections: %d\n", cfg.Database.MaxConns)
	fmt.Printf("Screening concurrency: %d\n", cfg.Backtest.ScreeningConcurrency)
}
