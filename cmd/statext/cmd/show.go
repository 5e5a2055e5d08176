/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/ledger"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show an account and its decoded state",
	Long: `Show an account's balance and size, and for state buffers the base record
and every extension.

Examples:
  statext show <address>
  statext show --json <address>
  statext show --rent`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		rent, _ := cmd.Flags().GetBool("rent")

		var addr account.Address
		switch {
		case rent:
			addr = account.RentAddress
		case len(args) == 1:
			var err error
			if addr, err = account.ParseAddress(args[0]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("an address or --rent is required")
		}

		l, _, _, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer l.Close()

		acct, ok, err := l.Account(addr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("account %s not found", addr)
		}

		view := l.Describe(acct)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		return printAccount(cmd.OutOrStdout(), view)
	},
}

var (
	labelColor = color.New(color.FgCyan)
	goodColor  = color.New(color.FgGreen)
	badColor   = color.New(color.FgRed, color.Bold)
)

func printField(w io.Writer, label string, format string, a ...interface{}) {
	labelColor.Fprintf(w, "%-14s", label)
	fmt.Fprintf(w, format+"\n", a...)
}

// printAccount renders v for a terminal.
func printAccount(w io.Writer, v *ledger.AccountView) error {
	printField(w, "Address", "%s", v.Address)
	printField(w, "Owner", "%s", v.Owner)
	printField(w, "Lamports", "%s", humanize.Comma(int64(v.Lamports)))
	printField(w, "Size", "%s (%d bytes)", humanize.IBytes(uint64(v.Size)), v.Size)
	if v.RentExempt {
		printField(w, "Rent", "%s", goodColor.Sprint("exempt"))
	} else {
		printField(w, "Rent", "%s", badColor.Sprint("not exempt"))
	}

	if v.Rent != nil {
		printField(w, "Per byte-year", "%s lamports", humanize.Comma(int64(v.Rent.LamportsPerByteYear)))
		printField(w, "Threshold", "%s years", humanize.Ftoa(v.Rent.ExemptionThreshold))
		printField(w, "Burn", "%d%%", v.Rent.BurnPercent)
	}

	if r := v.Record; r != nil {
		fmt.Fprintln(w)
		printField(w, "State", "%s", r.State)
		printField(w, "Record owner", "%s", r.Owner)
		printField(w, "Payload", "%s", r.Payload)
		printField(w, "Updates", "%d", r.UpdateCount)
		printField(w, "Bump", "%d", r.Bump)
	}

	if len(v.Extensions) > 0 {
		fmt.Fprintln(w)
		labelColor.Fprintf(w, "Extensions (%d)\n", len(v.Extensions))
		for _, e := range v.Extensions {
			body, err := json.Marshal(e.Value)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %-3d %-10s %s\n", e.Tag, e.Name, body)
		}
	}

	if v.Problem != "" {
		fmt.Fprintln(w)
		printField(w, "Problem", "%s", badColor.Sprint(v.Problem))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("json", false, "Print the decoded account as JSON")
	showCmd.Flags().Bool("rent", false, "Show the rent parameter account")
}
