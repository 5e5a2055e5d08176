/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/statext/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration and data directory",
	Long: `Create a configuration file with a freshly generated API key, then open
the data directory once so the rent parameter account is seeded.

Examples:
  statext init
  statext init --data-dir ./mydata --backend pebble
  statext init --config ./statext.yaml --force --print-key`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		backend, _ := cmd.Flags().GetString("backend")
		path := configPath(cmd)

		if config.ConfigExists(path) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
			return nil
		}

		cfg, err := config.BootstrapConfig(path, dataDir)
		if err != nil {
			return err
		}
		if backend != "" && backend != cfg.Backend {
			cfg.Backend = backend
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
		}
		cmd.Printf("✅ Configuration created at %s\n", path)

		l, _, _, err := openLedger(cmd)
		if err != nil {
			return err
		}
		if err := l.Close(); err != nil {
			return err
		}
		cmd.Printf("📁 Data directory: %s (%s backend)\n", cfg.DataDir, cfg.Backend)

		if printKey {
			cmd.Printf("\n🔑 API key: %s\n", cfg.Security.APIKey)
			cmd.Printf("⚠️  Store this key securely! It is also saved in %s\n", path)
		}
		cmd.Printf("\nStart the server with:\n  statext serve --config %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}
