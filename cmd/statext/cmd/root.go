/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ssargent/statext/pkg/config"
	"github.com/ssargent/statext/pkg/di"
	"github.com/ssargent/statext/pkg/ledger"
	"github.com/ssargent/statext/pkg/logging"
)

var container *di.Container

// SetContainer injects the dependency container.
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "statext",
	Short: "statext - persisted state buffers with typed extensions",
	Long: `statext keeps fixed-layout state records in funded, resizable accounts.
Each record can carry up to five typed extensions; the account grows and is
topped up to stay rent-exempt as extensions are added.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().String("backend", "", "Storage backend, log or pebble (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides config)")
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// loadConfig reads the config file when there is one, falls back to the
// defaults otherwise, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)

	cfg := config.DefaultConfig()
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ledgerOptions(cfg *config.Config) (ledger.Options, error) {
	ns, err := cfg.NamespaceAddress()
	if err != nil {
		return ledger.Options{}, err
	}
	return ledger.Options{
		Backend:       cfg.Backend,
		DataDir:       cfg.DataDir,
		FsyncInterval: cfg.FsyncInterval,
		Namespace:     ns,
		Rent:          cfg.Rent,
		Limits:        cfg.Limits,
	}, nil
}

// openLedger loads the config and opens the ledger it describes.
func openLedger(cmd *cobra.Command) (*ledger.Ledger, *config.Config, zerolog.Logger, error) {
	if container == nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("dependency container not initialized")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	logger, err := logging.NewWith(cmd.ErrOrStderr(), cfg.Logging)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	opts, err := ledgerOptions(cfg)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("failed to create data dir: %w", err)
	}

	l, err := container.GetLedgerFactory().Open(opts, logger)
	if err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("failed to open ledger: %w", err)
	}
	return l, cfg, logger, nil
}
