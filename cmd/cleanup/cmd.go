package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"rugal-dominion/internal/actions"
	"rugal-dominion/internal/config"
	"rugal-dominion/internal/ledger"
	"rugal-dominion/internal/metadata"
	"rugal-dominion/internal/scanner"
	solrpc "rugal-dominion/internal/solana"
	"rugal-dominion/internal/storage"
	"rugal-dominion/internal/storage/memory"
	redisstore "rugal-dominion/internal/storage/redis"
	"rugal-dominion/internal/submit"
	"rugal-dominion/internal/txbuilder"
	"rugal-dominion/internal/wallet"
)

type globalOptions struct {
	ConfigFile string
	Keypair    string
	RPCURL     string
	LedgerURL  string
	Referral   string
	NoSimulate bool
	Timeout    time.Duration
}

// NewRootCommand builds the cleanup command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "cleanup",
		Short:         "Reclaim rent and burn unwanted tokens from a Solana wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file, E.g. `./rugal.yaml`")
	flags.StringVar(&opts.Keypair, "keypair", "", "path to a solana-keygen JSON file or a base58 secret key")
	flags.StringVar(&opts.RPCURL, "rpc-url", "", "Solana RPC HTTP endpoint (overrides provider selection)")
	flags.StringVar(&opts.LedgerURL, "ledger-url", "", "base URL of the leaderboard server")
	flags.StringVar(&opts.Referral, "referral", "", "referral code attached to awarded points")
	flags.BoolVar(&opts.NoSimulate, "no-simulate", false, "skip transaction simulation")
	flags.DurationVar(&opts.Timeout, "timeout", 3*time.Minute, "overall command timeout")

	cmd.AddCommand(
		NewScanCommand(opts),
		NewActionCommand(opts, "absorb", "Close empty token accounts and reclaim rent", runAbsorb),
		NewActionCommand(opts, "burn-tokens", "Burn fungible token balances and close the accounts", runBurnTokens),
		NewActionCommand(opts, "burn-nfts", "Burn NFTs and close their accounts", runBurnNFTs),
	)
	return cmd
}

// app holds the wired components for one command run.
type app struct {
	cfg      *config.Config
	endpoint config.Endpoint
	service  *actions.Service
	resolver *metadata.Resolver
	awards   *ledger.Async
	logger   *log.Logger
	closers  []func()
}

// Close waits for pending awards and releases connections.
func (a *app) Close() {
	if a.awards != nil {
		a.awards.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp loads configuration and wires the cleanup components.
func newApp(ctx context.Context, opts *globalOptions) (*app, error) {
	if opts.ConfigFile != "" {
		os.Setenv(config.EnvPrefix+"CONFIG", opts.ConfigFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, opts)

	logger := log.New(os.Stderr, "[cleanup] ", log.LstdFlags|log.Lshortfile)
	a := &app{cfg: cfg, endpoint: cfg.BestEndpoint(), logger: logger}

	rpc := solrpc.NewHTTPClient(a.endpoint.HTTP, solrpc.WithCommitment(cfg.Commitment))

	pipelineOpts := []submit.Option{
		submit.WithSimulation(cfg.Simulate),
		submit.WithCommitment(cfg.Commitment),
		submit.WithLogger(logger),
	}
	wsCfg := solrpc.DefaultWSConfig()
	wsCfg.Logger = logger
	if ws, err := solrpc.NewWSClient(ctx, a.endpoint.WS, &wsCfg); err != nil {
		logger.Printf("WebSocket unavailable, confirming by polling: %v", err)
	} else {
		a.closers = append(a.closers, func() { ws.Close() })
		pipelineOpts = append(pipelineOpts, submit.WithWSClient(ws))
	}

	feeWallet, err := solana.PublicKeyFromBase58(cfg.FeeWallet)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("parse fee wallet: %w", err)
	}
	builder := txbuilder.New(
		txbuilder.WithFeeWallet(feeWallet),
		txbuilder.WithFeePercent(cfg.FeePercentDecimal()),
	)

	var primary ledger.Ledger
	if cfg.LedgerURL != "" {
		primary = ledger.NewHTTPLedger(cfg.LedgerURL, &http.Client{Timeout: 10 * time.Second})
	}
	ledgerLogger := log.New(os.Stderr, "[ledger] ", log.LstdFlags|log.Lshortfile)
	a.awards = ledger.NewAsync(
		ledger.NewFallbackLedger(primary, ledger.NewLocalLedger(cfg.LedgerFile), ledgerLogger),
		ledgerLogger,
	)

	connector := wallet.NewKeypairConnector(cfg.Keypair)
	if cfg.Keypair != "" {
		if _, err := connector.Connect(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect wallet: %w", err)
		}
	}

	a.service = actions.NewService(
		rpc,
		scanner.New(rpc, scanner.WithLogger(logger)),
		builder,
		submit.New(rpc, pipelineOpts...),
		a.awards,
		connector,
		actions.WithReferralCode(cfg.ReferralCode),
		actions.WithLogger(logger),
	)

	a.resolver = metadata.NewResolver(rpc,
		metadata.WithCache(a.metadataCache(ctx)),
		metadata.WithTokenListURL(cfg.TokenListURL),
		metadata.WithLogger(logger),
	)
	return a, nil
}

// metadataCache returns the Redis cache when configured, otherwise a per-run memory cache.
func (a *app) metadataCache(ctx context.Context) storage.TokenMetadataStore {
	if a.cfg.RedisURL == "" {
		return memory.NewTokenMetadataStore()
	}
	client, err := redisstore.NewClient(ctx, a.cfg.RedisURL)
	if err != nil {
		a.logger.Printf("Redis unavailable, caching metadata in memory: %v", err)
		return memory.NewTokenMetadataStore()
	}
	a.closers = append(a.closers, func() { client.Close() })
	return redisstore.NewTokenMetadataStore(client, a.cfg.MetadataCacheTTL)
}

func applyOverrides(cfg *config.Config, opts *globalOptions) {
	if opts.Keypair != "" {
		cfg.Keypair = opts.Keypair
	}
	if opts.RPCURL != "" {
		cfg.RPCURL = opts.RPCURL
		cfg.WSURL = ""
	}
	if opts.LedgerURL != "" {
		cfg.LedgerURL = opts.LedgerURL
	}
	if opts.Referral != "" {
		cfg.ReferralCode = opts.Referral
	}
	if opts.NoSimulate {
		cfg.Simulate = false
	}
}
