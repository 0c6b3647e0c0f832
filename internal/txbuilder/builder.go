// Package txbuilder assembles the single atomic transaction of a cleanup action.
package txbuilder

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"

	"rugal-dominion/internal/domain"
)

var (
	// ErrNothingToBuild is returned when no selected account qualifies for the action.
	ErrNothingToBuild = errors.New("no eligible accounts selected")
	// ErrFrozenAccount is returned when a frozen account is selected.
	ErrFrozenAccount = errors.New("frozen account selected")
)

// Plan is a built, unsigned set of instructions for one action.
type Plan struct {
	Action       domain.Action
	Owner        solana.PublicKey
	Instructions []solana.Instruction
	Items        []domain.TokenAccount // accounts processed, in instruction order
	FeeLamports  uint64                // fee computed for the action
	FeeCharged   bool                  // whether the fee transfer was appended
}

// ChargedFee returns the fee actually transferred, zero when skipped.
func (p *Plan) ChargedFee() uint64 {
	if !p.FeeCharged {
		return 0
	}
	return p.FeeLamports
}

// Transaction assembles the plan into one transaction paid by the owner.
func (p *Plan) Transaction(blockhash string) (*solana.Transaction, error) {
	hash, err := solana.HashFromBase58(blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(p.Instructions, hash, solana.TransactionPayer(p.Owner))
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return tx, nil
}

// Builder turns selected token accounts into a Plan.
type Builder struct {
	feeWallet  solana.PublicKey
	feePercent decimal.Decimal
}

// Option configures Builder.
type Option func(*Builder)

// WithFeeWallet overrides the fee recipient.
func WithFeeWallet(w solana.PublicKey) Option {
	return func(b *Builder) { b.feeWallet = w }
}

// WithFeePercent overrides the fee percentage.
func WithFeePercent(pct decimal.Decimal) Option {
	return func(b *Builder) { b.feePercent = pct }
}

// New creates a Builder with the default fee wallet and percentage.
func New(opts ...Option) *Builder {
	b := &Builder{
		feeWallet:  solana.MustPublicKeyFromBase58(DefaultFeeWallet),
		feePercent: DefaultFeePercent,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FeePercent returns the configured fee percentage.
func (b *Builder) FeePercent() decimal.Decimal {
	return b.feePercent
}

// BuildAbsorb closes each selected empty account, returning its rent to the owner.
// Accounts that still hold tokens are skipped.
func (b *Builder) BuildAbsorb(owner solana.PublicKey, accounts []domain.TokenAccount, rent, balance uint64) (*Plan, error) {
	plan := &Plan{Action: domain.ActionAbsorb, Owner: owner}
	for _, a := range accounts {
		if !a.IsEmpty() {
			continue
		}
		if a.Frozen {
			return nil, fmt.Errorf("%w: %s", ErrFrozenAccount, a.Address)
		}
		acct, err := solana.PublicKeyFromBase58(a.Address)
		if err != nil {
			return nil, fmt.Errorf("parse account %s: %w", a.Address, err)
		}
		ix, err := closeAccount(acct, owner)
		if err != nil {
			return nil, err
		}
		plan.Instructions = append(plan.Instructions, ix)
		plan.Items = append(plan.Items, a)
	}
	if len(plan.Items) == 0 {
		return nil, ErrNothingToBuild
	}

	fee := ComputeAbsorbFee(rent, len(plan.Items), b.feePercent)
	return b.withFee(plan, fee, balance)
}

// BuildTokenBurn burns the full balance of each selected fungible account and closes it.
func (b *Builder) BuildTokenBurn(owner solana.PublicKey, accounts []domain.TokenAccount, rent, balance uint64) (*Plan, error) {
	plan := &Plan{Action: domain.ActionTokenBurn, Owner: owner}
	for _, a := range accounts {
		if a.IsEmpty() || a.IsNFTLike() {
			continue
		}
		if err := b.appendBurn(plan, a, a.Amount, a.Decimals); err != nil {
			return nil, err
		}
	}
	if len(plan.Items) == 0 {
		return nil, ErrNothingToBuild
	}
	return b.withFee(plan, ComputeBurnFee(rent, b.feePercent), balance)
}

// BuildNFTBurn burns each selected NFT and closes its account.
func (b *Builder) BuildNFTBurn(owner solana.PublicKey, accounts []domain.TokenAccount, rent, balance uint64) (*Plan, error) {
	plan := &Plan{Action: domain.ActionNFTBurn, Owner: owner}
	for _, a := range accounts {
		if !a.IsNFTLike() {
			continue
		}
		if err := b.appendBurn(plan, a, 1, 0); err != nil {
			return nil, err
		}
	}
	if len(plan.Items) == 0 {
		return nil, ErrNothingToBuild
	}
	return b.withFee(plan, ComputeBurnFee(rent, b.feePercent), balance)
}

// Build dispatches on action.
func (b *Builder) Build(action domain.Action, owner solana.PublicKey, accounts []domain.TokenAccount, rent, balance uint64) (*Plan, error) {
	switch action {
	case domain.ActionAbsorb:
		return b.BuildAbsorb(owner, accounts, rent, balance)
	case domain.ActionTokenBurn:
		return b.BuildTokenBurn(owner, accounts, rent, balance)
	case domain.ActionNFTBurn:
		return b.BuildNFTBurn(owner, accounts, rent, balance)
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

func (b *Builder) appendBurn(plan *Plan, a domain.TokenAccount, amount uint64, decimals uint8) error {
	if a.Frozen {
		return fmt.Errorf("%w: %s", ErrFrozenAccount, a.Address)
	}
	acct, err := solana.PublicKeyFromBase58(a.Address)
	if err != nil {
		return fmt.Errorf("parse account %s: %w", a.Address, err)
	}
	mint, err := solana.PublicKeyFromBase58(a.Mint)
	if err != nil {
		return fmt.Errorf("parse mint %s: %w", a.Mint, err)
	}

	burn, err := token.NewBurnCheckedInstruction(amount, decimals, acct, mint, plan.Owner, nil).ValidateAndBuild()
	if err != nil {
		return fmt.Errorf("build burn %s: %w", a.Address, err)
	}
	closeIx, err := closeAccount(acct, plan.Owner)
	if err != nil {
		return err
	}
	plan.Instructions = append(plan.Instructions, burn, closeIx)
	plan.Items = append(plan.Items, a)
	return nil
}

// withFee appends the fee transfer when the payer can afford it.
func (b *Builder) withFee(plan *Plan, fee, balance uint64) (*Plan, error) {
	plan.FeeLamports = fee
	if !ShouldChargeFee(balance, fee) {
		return plan, nil
	}
	transfer, err := system.NewTransferInstruction(fee, plan.Owner, b.feeWallet).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build fee transfer: %w", err)
	}
	plan.Instructions = append(plan.Instructions, transfer)
	plan.FeeCharged = true
	return plan, nil
}

func closeAccount(account, owner solana.PublicKey) (solana.Instruction, error) {
	ix, err := token.NewCloseAccountInstruction(account, owner, owner, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build close %s: %w", account, err)
	}
	return ix, nil
}
