// Package scanner enumerates and classifies the token accounts of a wallet.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/samber/lo"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/observability"
	solrpc "rugal-dominion/internal/solana"
)

// MaxMintLength is the longest base58 mint accepted as a regular NFT.
// Longer identifiers are treated as compressed NFTs and skipped.
const MaxMintLength = 44

// Result is one classified scan of a wallet's token accounts.
type Result struct {
	Owner      string
	Empty      []domain.TokenAccount
	NFTs       []domain.TokenAccount
	Fungible   []domain.TokenAccount
	Compressed []domain.TokenAccount
}

// Total returns the number of accounts seen.
func (r *Result) Total() int {
	return len(r.Empty) + len(r.NFTs) + len(r.Fungible) + len(r.Compressed)
}

// SelectableEmpty returns empty accounts that can be closed.
func (r *Result) SelectableEmpty() []domain.TokenAccount {
	return selectable(r.Empty)
}

// SelectableNFTs returns NFT accounts that can be burned.
func (r *Result) SelectableNFTs() []domain.TokenAccount {
	return selectable(r.NFTs)
}

// SelectableFungible returns fungible accounts that can be burned.
func (r *Result) SelectableFungible() []domain.TokenAccount {
	return selectable(r.Fungible)
}

// For returns the accounts an action operates on.
func (r *Result) For(action domain.Action) []domain.TokenAccount {
	switch action {
	case domain.ActionAbsorb:
		return r.SelectableEmpty()
	case domain.ActionTokenBurn:
		return r.SelectableFungible()
	case domain.ActionNFTBurn:
		return r.SelectableNFTs()
	default:
		return nil
	}
}

// FrozenCount returns how many scanned accounts are frozen.
func (r *Result) FrozenCount() int {
	all := lo.Flatten([][]domain.TokenAccount{r.Empty, r.NFTs, r.Fungible})
	return lo.CountBy(all, func(a domain.TokenAccount) bool { return a.Frozen })
}

func selectable(accounts []domain.TokenAccount) []domain.TokenAccount {
	return lo.Filter(accounts, func(a domain.TokenAccount, _ int) bool { return !a.Frozen })
}

// Classify returns the class of a single account.
func Classify(a domain.TokenAccount) domain.AccountClass {
	switch {
	case a.IsEmpty():
		return domain.AccountClassEmpty
	case a.IsNFTLike() && len(a.Mint) > MaxMintLength:
		return domain.AccountClassCompressed
	case a.IsNFTLike():
		return domain.AccountClassNFT
	default:
		return domain.AccountClassFungible
	}
}

// Scanner reads token accounts through RPC.
type Scanner struct {
	rpc    solrpc.RPCClient
	logger *log.Logger
}

// Option configures Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// New creates a new Scanner.
func New(rpc solrpc.RPCClient, opts ...Option) *Scanner {
	s := &Scanner{
		rpc:    rpc,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan fetches all token accounts of owner and classifies them.
func (s *Scanner) Scan(ctx context.Context, owner string) (*Result, error) {
	parsed, err := s.rpc.GetParsedTokenAccountsByOwner(ctx, owner, solrpc.TokenProgramID)
	if err != nil {
		s.logger.Printf("scan %s failed: %v", owner, err)
		return nil, fmt.Errorf("scan token accounts: %w", err)
	}

	res := &Result{Owner: owner}
	for _, p := range parsed {
		acct := toTokenAccount(p)
		switch Classify(acct) {
		case domain.AccountClassEmpty:
			res.Empty = append(res.Empty, acct)
		case domain.AccountClassCompressed:
			res.Compressed = append(res.Compressed, acct)
		case domain.AccountClassNFT:
			res.NFTs = append(res.NFTs, acct)
		default:
			res.Fungible = append(res.Fungible, acct)
		}
	}

	observability.RecordScan(len(res.Empty), len(res.NFTs), len(res.Fungible), len(res.Compressed))
	s.logger.Printf("scan %s: %d empty, %d nfts, %d fungible, %d compressed",
		owner, len(res.Empty), len(res.NFTs), len(res.Fungible), len(res.Compressed))

	return res, nil
}

func toTokenAccount(p solrpc.ParsedTokenAccount) domain.TokenAccount {
	return domain.TokenAccount{
		Address:  p.Pubkey,
		Mint:     p.Mint,
		Owner:    p.Owner,
		Amount:   p.Amount,
		Decimals: p.Decimals,
		UIAmount: p.UIAmount,
		Frozen:   p.State == "frozen",
		Lamports: p.Lamports,
	}
}
