package solana

import "context"

// Well-known program IDs.
const (
	TokenProgramID  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	SystemProgramID = "11111111111111111111111111111111"
)

// RPCClient defines the Solana RPC HTTP interface used by the cleanup flows.
type RPCClient interface {
	// GetParsedTokenAccountsByOwner returns all token accounts of owner under programID (jsonParsed).
	GetParsedTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]ParsedTokenAccount, error)

	// GetMinimumBalanceForRentExemption returns lamports required for an account of size bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, size int) (uint64, error)

	// GetBalance returns lamports held by pubkey.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetLatestBlockhash returns the latest blockhash and its expiry height.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)

	// GetAccountInfo retrieves raw account info. Returns nil if account not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// SimulateTransaction simulates a serialized transaction without signature verification.
	SimulateTransaction(ctx context.Context, rawTx []byte) (*SimulationResult, error)

	// SendTransaction submits a signed serialized transaction once and returns its signature.
	SendTransaction(ctx context.Context, rawTx []byte) (string, error)

	// GetSignatureStatuses returns statuses for signatures; unknown signatures yield nil entries.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}
