// Package actions runs the absorb, token burn and NFT burn flows end to end.
package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/samber/lo"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/ledger"
	"rugal-dominion/internal/scanner"
	solrpc "rugal-dominion/internal/solana"
	"rugal-dominion/internal/submit"
	"rugal-dominion/internal/txbuilder"
	"rugal-dominion/internal/wallet"
)

// ErrNothingSelected is returned when the selection matches no eligible account.
var ErrNothingSelected = errors.New("nothing selected")

// Selection picks accounts by address. An empty selection means every eligible account.
type Selection struct {
	Addresses []string
}

// Outcome describes a completed action.
type Outcome struct {
	Action        domain.Action
	Signature     string
	Items         []domain.TokenAccount
	FeeLamports   uint64 // fee actually transferred
	FeeCharged    bool
	PointsAwarded int64
	Remaining     *scanner.Result // rescan after the transaction, nil if it failed
}

// Service wires scanning, building, submission and point awards.
type Service struct {
	rpc          solrpc.RPCClient
	scanner      *scanner.Scanner
	builder      *txbuilder.Builder
	pipeline     *submit.Pipeline
	awards       *ledger.Async
	connector    *wallet.Connector
	referralCode string
	logger       *log.Logger
}

// Option configures Service.
type Option func(*Service)

// WithReferralCode attaches a referral code to every award.
func WithReferralCode(code string) Option {
	return func(s *Service) { s.referralCode = code }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service.
func NewService(
	rpc solrpc.RPCClient,
	sc *scanner.Scanner,
	builder *txbuilder.Builder,
	pipeline *submit.Pipeline,
	awards *ledger.Async,
	connector *wallet.Connector,
	opts ...Option,
) *Service {
	s := &Service{
		rpc:       rpc,
		scanner:   sc,
		builder:   builder,
		pipeline:  pipeline,
		awards:    awards,
		connector: connector,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan classifies the connected wallet's token accounts.
func (s *Service) Scan(ctx context.Context) (*scanner.Result, error) {
	w, err := s.connector.Wallet()
	if err != nil {
		return nil, err
	}
	return s.scanner.Scan(ctx, w.PublicKey().String())
}

// Absorb closes empty token accounts and reclaims their rent.
func (s *Service) Absorb(ctx context.Context, sel Selection) (*Outcome, error) {
	return s.run(ctx, domain.ActionAbsorb, sel)
}

// BurnTokens burns fungible balances and closes their accounts.
func (s *Service) BurnTokens(ctx context.Context, sel Selection) (*Outcome, error) {
	return s.run(ctx, domain.ActionTokenBurn, sel)
}

// BurnNFTs burns NFTs and closes their accounts.
func (s *Service) BurnNFTs(ctx context.Context, sel Selection) (*Outcome, error) {
	return s.run(ctx, domain.ActionNFTBurn, sel)
}

func (s *Service) run(ctx context.Context, action domain.Action, sel Selection) (*Outcome, error) {
	w, err := s.connector.Wallet()
	if err != nil {
		return nil, err
	}
	owner := w.PublicKey()

	scan, err := s.scanner.Scan(ctx, owner.String())
	if err != nil {
		return nil, err
	}
	selected := Select(scan.For(action), sel)
	if len(selected) == 0 {
		return nil, ErrNothingSelected
	}

	rent, err := s.rpc.GetMinimumBalanceForRentExemption(ctx, domain.TokenAccountSize)
	if err != nil {
		return nil, fmt.Errorf("get rent exemption: %w", err)
	}
	balance, err := s.rpc.GetBalance(ctx, owner.String())
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	plan, err := s.builder.Build(action, owner, selected, rent, balance)
	if err != nil {
		if errors.Is(err, txbuilder.ErrNothingToBuild) {
			return nil, ErrNothingSelected
		}
		return nil, err
	}
	if !plan.FeeCharged {
		s.logger.Printf("%s: balance %d cannot cover fee %d, proceeding without fee", action, balance, plan.FeeLamports)
	}

	res, err := s.pipeline.Submit(ctx, plan, w)
	if err != nil {
		out := &Outcome{Action: action}
		if res != nil {
			out.Signature = res.Signature
		}
		return out, err
	}

	out := &Outcome{
		Action:      action,
		Signature:   res.Signature,
		Items:       plan.Items,
		FeeLamports: plan.ChargedFee(),
		FeeCharged:  plan.FeeCharged,
	}

	awards := Awards(owner.String(), action, res.Signature, s.referralCode, plan.ChargedFee(), len(plan.Items))
	out.PointsAwarded = action.Points() * int64(len(awards))
	s.awards.AwardAsync(awards...)

	remaining, err := s.scanner.Scan(ctx, owner.String())
	if err != nil {
		s.logger.Printf("rescan after %s: %v", res.Signature, err)
	} else {
		out.Remaining = remaining
	}
	return out, nil
}

// Select keeps the candidates named by sel, or all of them for an empty selection.
func Select(candidates []domain.TokenAccount, sel Selection) []domain.TokenAccount {
	if len(sel.Addresses) == 0 {
		return candidates
	}
	return lo.Filter(candidates, func(a domain.TokenAccount, _ int) bool {
		return lo.Contains(sel.Addresses, a.Address)
	})
}

// Awards returns one award per processed item, splitting fee so the parts sum to it.
func Awards(wallet string, action domain.Action, signature, referralCode string, fee uint64, items int) []domain.PointsAward {
	fees := SplitFee(fee, items)
	return lo.Map(fees, func(f uint64, _ int) domain.PointsAward {
		return domain.PointsAward{
			Wallet:       wallet,
			Action:       action,
			FeesPaid:     f,
			ReferralCode: referralCode,
			Signature:    signature,
		}
	})
}

// SplitFee divides total into n parts differing by at most one lamport.
func SplitFee(total uint64, n int) []uint64 {
	if n <= 0 {
		return nil
	}
	parts := make([]uint64, n)
	base, rem := total/uint64(n), total%uint64(n)
	for i := range parts {
		parts[i] = base
		if uint64(i) < rem {
			parts[i]++
		}
	}
	return parts
}
