// Package main provides the entry point for the TeamForge matching engine.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teamforge/engine/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "teamforge",
	Short: "TeamForge matching engine",
	Long:  "TeamForge matches unplaced students to project groups and fully staffed groups to topics, using a deterministic baseline scorer with optional LLM reranking.",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to JSON config file (defaults to env vars)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEngineConfig resolves the effective configuration: file values when
// --config is given, defaults and env vars otherwise.
func loadEngineConfig() (*config.Config, error) {
	defaults := config.Default()
	if configPath == "" {
		if err := defaults.Validate(); err != nil {
			return nil, err
		}
		return defaults, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(*defaults)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}
