// Package main is the entry point for the evidencer CLI. It wraps the
// retrieval library for operators: running queries, validating scope
// before spending retrieval latency, and seeding a corpus for testing.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the evidencer CLI.
var rootCmd = &cobra.Command{
	Use:   "evidencer",
	Short: "Hybrid tenant-isolated evidence retrieval over a compliance corpus",
	Long: `evidencer retrieves audit evidence from a shared multi-tenant corpus by
fanning a query out over vector, full-text, knowledge-graph and summary
indexes and fusing the results.

Queries are always tenant-scoped. Ambiguous scope returns a clarification
request instead of evidence; cross-tenant leakage aborts the request.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./evidencer.yaml or ~/.config/evidencer/config.yaml)")
	rootCmd.PersistentFlags().String("tenant", "", "authenticated tenant id (required for retrieval commands)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("evidencer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "evidencer"))
		}
	}

	viper.SetEnvPrefix("EVIDENCER")
	viper.AutomaticEnv()

	viper.SetDefault("embedding_dim", 384)
	viper.SetDefault("embedder", "local")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
