package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"rugal-dominion/internal/actions"
	"rugal-dominion/internal/submit"
	"rugal-dominion/internal/txbuilder"
)

type actionFunc func(ctx context.Context, svc *actions.Service, sel actions.Selection) (*actions.Outcome, error)

func runAbsorb(ctx context.Context, svc *actions.Service, sel actions.Selection) (*actions.Outcome, error) {
	return svc.Absorb(ctx, sel)
}

func runBurnTokens(ctx context.Context, svc *actions.Service, sel actions.Selection) (*actions.Outcome, error) {
	return svc.BurnTokens(ctx, sel)
}

func runBurnNFTs(ctx context.Context, svc *actions.Service, sel actions.Selection) (*actions.Outcome, error) {
	return svc.BurnNFTs(ctx, sel)
}

type actionCmdOptions struct {
	Accounts []string
}

// NewActionCommand creates a command that runs one cleanup flow.
func NewActionCommand(global *globalOptions, use, short string, run actionFunc) *cobra.Command {
	opts := &actionCmdOptions{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return actionHandler(global, opts, run, cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&opts.Accounts, "account", nil, "token account address to include (repeatable, default: all eligible)")

	return cmd
}

func actionHandler(global *globalOptions, opts *actionCmdOptions, run actionFunc, cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), global.Timeout)
	defer cancel()

	a, err := newApp(ctx, global)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := run(ctx, a.service, actions.Selection{Addresses: opts.Accounts})
	if errors.Is(err, actions.ErrNothingSelected) {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do: no eligible accounts selected")
		return nil
	}
	if err != nil {
		a.logger.Printf("%s failed: %v", cmd.Name(), err)
		if outcome != nil && outcome.Signature != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Transaction %s was not confirmed\n", outcome.Signature)
		}
		return errors.New(submit.UserMessage(err))
	}

	printOutcome(cmd.OutOrStdout(), outcome)
	return nil
}

func printOutcome(out io.Writer, o *actions.Outcome) {
	fmt.Fprintf(out, "%s confirmed: %s\n", o.Action, o.Signature)
	fmt.Fprintf(out, "Accounts processed: %d\n", len(o.Items))
	if o.FeeCharged {
		fmt.Fprintf(out, "Service fee: %s SOL\n", txbuilder.FormatSOL(o.FeeLamports))
	} else {
		fmt.Fprintln(out, "Service fee: waived (insufficient balance)")
	}
	fmt.Fprintf(out, "Points awarded: %d\n", o.PointsAwarded)
	if o.Remaining != nil {
		fmt.Fprintf(out, "Remaining: %d empty, %d fungible, %d NFTs\n",
			len(o.Remaining.Empty), len(o.Remaining.Fungible), len(o.Remaining.NFTs))
	}
}
