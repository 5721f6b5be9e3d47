package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title Tenant Scraper API
// @version 1.0
// @description Tenant administration, scraped record access and on-demand scrape triggers
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

var rootCmd = &cobra.Command{
	Use:           "tenant-scraper",
	Short:         "Scrape tenant integrations and reconcile the results into Postgres",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, runOnceCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
