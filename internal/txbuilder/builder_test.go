package txbuilder

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"rugal-dominion/internal/domain"
)

const (
	testRent      = 2039280
	testBlockhash = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"
)

func newAccount(amount uint64, decimals uint8) domain.TokenAccount {
	return domain.TokenAccount{
		Address:  solana.NewWallet().PublicKey().String(),
		Mint:     solana.NewWallet().PublicKey().String(),
		Amount:   amount,
		Decimals: decimals,
	}
}

func TestBuildAbsorb_ChargesFee(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	b := New()

	accounts := []domain.TokenAccount{newAccount(0, 6), newAccount(5, 6), newAccount(0, 9)}
	plan, err := b.BuildAbsorb(owner, accounts, testRent, 1_000_000_000)
	if err != nil {
		t.Fatalf("BuildAbsorb failed: %v", err)
	}

	if len(plan.Items) != 2 {
		t.Fatalf("expected 2 items (non-empty skipped), got %d", len(plan.Items))
	}
	if len(plan.Instructions) != 3 {
		t.Fatalf("expected 2 closes + fee transfer, got %d", len(plan.Instructions))
	}
	for _, ix := range plan.Instructions[:2] {
		if !ix.ProgramID().Equals(solana.TokenProgramID) {
			t.Errorf("expected token program, got %s", ix.ProgramID())
		}
	}
	if !plan.Instructions[2].ProgramID().Equals(system.ProgramID) {
		t.Errorf("expected system transfer last, got %s", plan.Instructions[2].ProgramID())
	}
	if !plan.FeeCharged || plan.FeeLamports != 81571 || plan.ChargedFee() != 81571 {
		t.Errorf("unexpected fee: %+v", plan)
	}
}

func TestBuildAbsorb_SkipsUnaffordableFee(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	plan, err := New().BuildAbsorb(owner, []domain.TokenAccount{newAccount(0, 0)}, testRent, 1000)
	if err != nil {
		t.Fatalf("BuildAbsorb failed: %v", err)
	}
	if plan.FeeCharged || plan.ChargedFee() != 0 {
		t.Errorf("fee must be skipped: %+v", plan)
	}
	if len(plan.Instructions) != 1 {
		t.Errorf("expected only the close instruction, got %d", len(plan.Instructions))
	}
}

func TestBuildAbsorb_NothingEligible(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	_, err := New().BuildAbsorb(owner, []domain.TokenAccount{newAccount(1, 0)}, testRent, 1e9)
	if !errors.Is(err, ErrNothingToBuild) {
		t.Errorf("expected ErrNothingToBuild, got %v", err)
	}
}

func TestBuild_RejectsFrozen(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	frozen := newAccount(100, 6)
	frozen.Frozen = true

	_, err := New().BuildTokenBurn(owner, []domain.TokenAccount{frozen}, testRent, 1e9)
	if !errors.Is(err, ErrFrozenAccount) {
		t.Errorf("expected ErrFrozenAccount, got %v", err)
	}
}

func TestBuildTokenBurn(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	fungible := newAccount(123456789, 6)

	plan, err := New().BuildTokenBurn(owner, []domain.TokenAccount{fungible, newAccount(1, 0), newAccount(0, 6)}, testRent, 1e9)
	if err != nil {
		t.Fatalf("BuildTokenBurn failed: %v", err)
	}
	if len(plan.Items) != 1 || plan.Items[0].Address != fungible.Address {
		t.Fatalf("expected only the fungible account, got %+v", plan.Items)
	}
	if len(plan.Instructions) != 3 {
		t.Fatalf("expected burn + close + fee, got %d", len(plan.Instructions))
	}

	data, err := plan.Instructions[0].Data()
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	if data[0] != token.Instruction_BurnChecked {
		t.Errorf("expected BurnChecked, got instruction %d", data[0])
	}
	data, _ = plan.Instructions[1].Data()
	if data[0] != token.Instruction_CloseAccount {
		t.Errorf("expected CloseAccount, got instruction %d", data[0])
	}
	if plan.FeeLamports != 40785 {
		t.Errorf("expected one burn fee, got %d", plan.FeeLamports)
	}
}

func TestBuildNFTBurn(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	nft1, nft2 := newAccount(1, 0), newAccount(1, 0)

	plan, err := New().BuildNFTBurn(owner, []domain.TokenAccount{nft1, newAccount(10, 2), nft2}, testRent, 1e9)
	if err != nil {
		t.Fatalf("BuildNFTBurn failed: %v", err)
	}
	if len(plan.Items) != 2 {
		t.Fatalf("expected 2 NFTs, got %d", len(plan.Items))
	}
	if len(plan.Instructions) != 5 {
		t.Errorf("expected 2×(burn+close) + fee, got %d", len(plan.Instructions))
	}
	if plan.Action != domain.ActionNFTBurn {
		t.Errorf("unexpected action %s", plan.Action)
	}
}

func TestPlanTransaction(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	feeWallet := solana.NewWallet().PublicKey()

	plan, err := New(WithFeeWallet(feeWallet)).BuildAbsorb(owner, []domain.TokenAccount{newAccount(0, 0)}, testRent, 1e9)
	if err != nil {
		t.Fatalf("BuildAbsorb failed: %v", err)
	}

	tx, err := plan.Transaction(testBlockhash)
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
	if !tx.Message.AccountKeys[0].Equals(owner) {
		t.Errorf("expected owner as fee payer, got %s", tx.Message.AccountKeys[0])
	}
	if len(tx.Message.Instructions) != 2 {
		t.Errorf("expected 2 instructions, got %d", len(tx.Message.Instructions))
	}
	found := false
	for _, k := range tx.Message.AccountKeys {
		if k.Equals(feeWallet) {
			found = true
		}
	}
	if !found {
		t.Error("fee wallet missing from account keys")
	}

	if _, err := plan.Transaction("not-a-hash"); err == nil {
		t.Error("expected error for invalid blockhash")
	}
}
