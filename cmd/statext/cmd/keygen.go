/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/config"
)

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an API key or an account address",
	Long: `Generate a random hex API key, or with --address a fresh ed25519
public key printed as a base58 account address.

Examples:
  statext keygen
  statext keygen --bytes 16
  statext keygen --address`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asAddress, _ := cmd.Flags().GetBool("address")
		if asAddress {
			addr, err := newAddress()
			if err != nil {
				return err
			}
			cmd.Println(addr.String())
			return nil
		}

		n, _ := cmd.Flags().GetInt("bytes")
		if n < 16 {
			return fmt.Errorf("--bytes must be at least 16, got %d", n)
		}
		key, err := config.GenerateSecureKey(n)
		if err != nil {
			return err
		}
		cmd.Println(key)
		return nil
	},
}

func newAddress() (account.Address, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return account.Address{}, fmt.Errorf("failed to generate key: %w", err)
	}
	return account.AddressFromBytes(pub)
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().Int("bytes", 32, "Key length in bytes")
	keygenCmd.Flags().Bool("address", false, "Generate an account address instead of an API key")
}
