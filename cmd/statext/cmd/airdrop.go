/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ssargent/statext/pkg/account"
)

// airdropCmd represents the airdrop command
var airdropCmd = &cobra.Command{
	Use:   "airdrop <address> <lamports>",
	Short: "Credit lamports to an account",
	Long: `Credit lamports to an account in the local data directory. The account
is created, system-owned, if it does not exist.

Example:
  statext airdrop 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin 1000000000`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := account.ParseAddress(args[0])
		if err != nil {
			return err
		}
		lamports, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil || lamports == 0 {
			return fmt.Errorf("lamports must be a positive integer, got %q", args[1])
		}

		l, _, _, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer l.Close()

		acct, err := l.Airdrop(cmd.Context(), addr, lamports)
		if err != nil {
			return err
		}
		cmd.Printf("Airdropped %s lamports to %s, balance %s\n",
			humanize.Comma(int64(lamports)), addr, humanize.Comma(int64(acct.Lamports)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(airdropCmd)
}
