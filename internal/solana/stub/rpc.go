// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"errors"
	"sync"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/samber/lo"

	"rugal-dominion/internal/solana"
)

// ErrNotFound is returned when a stubbed value is absent.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Zero-valued fields produce zero responses; *Err fields force failures.
type RPCClient struct {
	mu sync.Mutex

	TokenAccounts map[string][]solana.ParsedTokenAccount // owner -> accounts
	Accounts      map[string]*solana.AccountInfo
	Balances      map[string]uint64
	RentExempt    uint64
	Blockhash     string
	BlockHeight   uint64
	// BlockStep advances BlockHeight after every GetBlockHeight call.
	BlockStep uint64

	// SimulationErr is returned as the simulation's on-chain error.
	SimulationErr interface{}
	// Statuses maps signature to its status; missing signatures report nil.
	Statuses map[string]*solana.SignatureStatus
	// NextSignature is returned by SendTransaction.
	NextSignature string

	TokenAccountsErr error
	SimulateErr      error
	SendErr          error

	// CloseOnSend removes token accounts closed by a sent transaction.
	CloseOnSend bool

	Sent      [][]byte
	Simulated [][]byte
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		TokenAccounts: make(map[string][]solana.ParsedTokenAccount),
		Accounts:      make(map[string]*solana.AccountInfo),
		Balances:      make(map[string]uint64),
		Statuses:      make(map[string]*solana.SignatureStatus),
		RentExempt:    2039280,
		Blockhash:     "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		NextSignature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
	}
}

// GetParsedTokenAccountsByOwner returns the stubbed accounts of owner.
func (c *RPCClient) GetParsedTokenAccountsByOwner(_ context.Context, owner, _ string) ([]solana.ParsedTokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TokenAccountsErr != nil {
		return nil, c.TokenAccountsErr
	}
	accounts := c.TokenAccounts[owner]
	out := make([]solana.ParsedTokenAccount, len(accounts))
	copy(out, accounts)
	return out, nil
}

// GetMinimumBalanceForRentExemption returns RentExempt regardless of size.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, _ int) (uint64, error) {
	return c.RentExempt, nil
}

// GetBalance returns the stubbed balance of pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// GetLatestBlockhash returns the stubbed blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &solana.LatestBlockhash{
		Blockhash:            c.Blockhash,
		LastValidBlockHeight: c.BlockHeight + 150,
	}, nil
}

// GetBlockHeight returns the stubbed block height.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.BlockHeight
	c.BlockHeight += c.BlockStep
	return h, nil
}

// GetAccountInfo returns the stubbed account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// SimulateTransaction records the transaction and returns SimulationErr.
func (c *RPCClient) SimulateTransaction(_ context.Context, rawTx []byte) (*solana.SimulationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Simulated = append(c.Simulated, rawTx)
	if c.SimulateErr != nil {
		return nil, c.SimulateErr
	}
	return &solana.SimulationResult{
		Err:  c.SimulationErr,
		Logs: []string{"Program TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA success"},
	}, nil
}

// SendTransaction records the transaction and returns NextSignature.
func (c *RPCClient) SendTransaction(_ context.Context, rawTx []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, rawTx)
	if c.SendErr != nil {
		return "", c.SendErr
	}
	if c.CloseOnSend {
		c.dropClosed(rawTx)
	}
	return c.NextSignature, nil
}

// dropClosed applies the CloseAccount instructions of rawTx to TokenAccounts. Callers hold mu.
func (c *RPCClient) dropClosed(rawTx []byte) {
	tx, err := sol.TransactionFromBytes(rawTx)
	if err != nil {
		return
	}
	closed := make(map[string]bool)
	for i := range tx.Message.Instructions {
		ix := &tx.Message.Instructions[i]
		program, err := tx.Message.ResolveProgramIDIndex(ix.ProgramIDIndex)
		if err != nil || !(program.Equals(sol.TokenProgramID) || program.Equals(sol.Token2022ProgramID)) {
			continue
		}
		if len(ix.Data) == 0 || ix.Data[0] != token.Instruction_CloseAccount {
			continue
		}
		metas, err := ix.ResolveInstructionAccounts(&tx.Message)
		if err != nil || len(metas) == 0 {
			continue
		}
		closed[metas[0].PublicKey.String()] = true
	}
	for owner, accounts := range c.TokenAccounts {
		c.TokenAccounts[owner] = lo.Reject(accounts, func(a solana.ParsedTokenAccount, _ int) bool {
			return closed[a.Pubkey]
		})
	}
}

// GetSignatureStatuses returns stubbed statuses in request order.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		out[i] = c.Statuses[sig]
	}
	return out, nil
}

// SetStatus sets the status reported for signature.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = status
}

// SentCount returns how many transactions were submitted.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}
