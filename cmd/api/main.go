// @title       Participation Service API
// @version     1.0
// @description Solicitudes de participación en eventos: alta, moderación y cupos.
// @BasePath    /
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"participation-service/internal/platform/config"
	"participation-service/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:           "api",
	Short:         "Participation requests service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig es común a todos los subcomandos.
func loadConfig() (config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.NewFromStrings(cfg.LogLevel, cfg.LogFormat, cfg.AppName)
	return cfg, log, nil
}
