/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/statext/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Open the ledger and serve it over HTTP until interrupted.

Every route under /api/v1 requires the X-API-Key header; /metrics is open.

Examples:
  statext serve
  statext serve --port 9000 --bind 0.0.0.0
  statext serve --api-key mysecretkey --backend pebble`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cfg, logger, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer l.Close()

		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if key, _ := cmd.Flags().GetString("api-key"); key != "" {
			cfg.Security.APIKey = key
		}
		if cfg.Security.APIKey == "auto" {
			return fmt.Errorf("no API key configured: run 'statext init' or pass --api-key")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cmd.Printf("🚀 Starting statext server on %s:%d\n", cfg.Bind, cfg.Port)
		cmd.Printf("📁 Data directory: %s (%s backend)\n", cfg.DataDir, cfg.Backend)
		cmd.Printf("📈 Metrics available at: http://%s:%d/metrics\n", cfg.Bind, cfg.Port)

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(ctx, l, api.ServerConfig{
			Port:   cfg.Port,
			Bind:   cfg.Bind,
			APIKey: cfg.Security.APIKey,
		}, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to (overrides config)")
	serveCmd.Flags().String("api-key", "", "API key for client authentication (overrides config)")
}
