package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/scanner"
	"rugal-dominion/internal/txbuilder"
)

type scanCmdOptions struct {
	NoMetadata bool
}

// NewScanCommand lists the wallet's token accounts by class.
func NewScanCommand(global *globalOptions) *cobra.Command {
	opts := &scanCmdOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List empty, fungible and NFT token accounts of the wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return scanHandler(global, opts, cmd)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.NoMetadata, "no-metadata", false, "skip token name and symbol lookups")

	return cmd
}

func scanHandler(global *globalOptions, opts *scanCmdOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), global.Timeout)
	defer cancel()

	a, err := newApp(ctx, global)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.Scan(ctx)
	if err != nil {
		return err
	}

	var names map[string]*domain.TokenMetadata
	if !opts.NoMetadata {
		names = a.resolver.ResolveAll(ctx, append(append([]domain.TokenAccount{}, result.Fungible...), result.NFTs...))
	}
	printScan(cmd.OutOrStdout(), result, names)
	return nil
}

func printScan(out io.Writer, r *scanner.Result, names map[string]*domain.TokenMetadata) {
	fmt.Fprintf(out, "Wallet %s: %d token accounts (%d frozen)\n", r.Owner, r.Total(), r.FrozenCount())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	section := func(title string, accounts []domain.TokenAccount) {
		fmt.Fprintf(tw, "\n%s (%d)\n", title, len(accounts))
		for _, acc := range accounts {
			label := acc.Mint
			if m, ok := names[acc.Mint]; ok && m != nil {
				label = fmt.Sprintf("%s (%s)", m.Name, m.Symbol)
			}
			state := ""
			if acc.Frozen {
				state = "frozen"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%v\t%s SOL\t%s\n", acc.Address, label, acc.UIAmount, txbuilder.FormatSOL(acc.Lamports), state)
		}
	}
	section("Empty", r.Empty)
	section("Fungible", r.Fungible)
	section("NFTs", r.NFTs)
	if len(r.Compressed) > 0 {
		fmt.Fprintf(tw, "\nCompressed NFTs (%d) are not supported and were skipped\n", len(r.Compressed))
	}
	tw.Flush()
}
