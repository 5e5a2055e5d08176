/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/ledger"
)

// initializeCmd represents the initialize command
var initializeCmd = &cobra.Command{
	Use:   "initialize",
	Short: "Create the state buffer for an owner",
	Long: `Derive the state address for --owner and submit the initialize-state
instruction, paid for by --payer. The payer needs enough lamports to make the
buffer rent-exempt at every size it grows to.

Example:
  statext initialize --payer <address> --owner <address> --payload <64 hex chars>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		payerFlag, _ := cmd.Flags().GetString("payer")
		ownerFlag, _ := cmd.Flags().GetString("owner")
		payloadFlag, _ := cmd.Flags().GetString("payload")

		payer, err := account.ParseAddress(payerFlag)
		if err != nil {
			return err
		}
		owner, err := account.ParseAddress(ownerFlag)
		if err != nil {
			return err
		}
		var payload account.Blob
		if payloadFlag != "" {
			if payload, err = account.ParseBlob(payloadFlag); err != nil {
				return err
			}
		}

		l, _, _, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer l.Close()

		res, err := l.InitializeState(cmd.Context(), ledger.StateRequest{Payer: payer, Owner: owner, Payload: payload})
		if res != nil && res.Receipt != nil {
			cmd.Printf("Receipt: %s (%s)\n", res.Receipt.ID, res.Receipt.Status)
		}
		if err != nil {
			if res != nil && res.Receipt != nil {
				cmd.Printf("Error %d %s: %s\n", res.Receipt.Code, res.Receipt.CodeName, res.Receipt.Error)
			}
			return err
		}

		cmd.Printf("State address: %s (bump %d)\n", res.Address, res.Bump)
		acct, _, err := l.Account(res.Address)
		if err != nil {
			return err
		}
		return printAccount(cmd.OutOrStdout(), l.Describe(acct))
	},
}

func init() {
	rootCmd.AddCommand(initializeCmd)
	initializeCmd.Flags().String("payer", "", "Fee payer address (required)")
	initializeCmd.Flags().String("owner", "", "Owner key the state is derived from (required)")
	initializeCmd.Flags().String("payload", "", "Initial 32-byte payload as hex")
	if err := initializeCmd.MarkFlagRequired("payer"); err != nil {
		panic(err)
	}
	if err := initializeCmd.MarkFlagRequired("owner"); err != nil {
		panic(err)
	}
}
