// Package wallet provides the signer used by the cleanup flows.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNotConnected is returned when no wallet is connected.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrNotSigner is returned when the wallet is not the fee payer of a transaction.
	ErrNotSigner = errors.New("wallet is not a signer of the transaction")
)

// Wallet signs transactions on behalf of its owner.
type Wallet interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// KeypairWallet signs with a local ed25519 keypair.
type KeypairWallet struct {
	key solana.PrivateKey
}

// Compile-time interface check.
var _ Wallet = (*KeypairWallet)(nil)

// NewKeypairWallet wraps an existing private key.
func NewKeypairWallet(key solana.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

// LoadKeypair loads a keypair from a solana-keygen JSON file, or parses
// source as a base58 secret key when no such file exists.
func LoadKeypair(source string) (*KeypairWallet, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty keypair source")
	}

	if _, err := os.Stat(source); err == nil {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(source)
		if err != nil {
			return nil, fmt.Errorf("read keygen file: %w", err)
		}
		return NewKeypairWallet(key), nil
	}

	key, err := solana.PrivateKeyFromBase58(source)
	if err != nil {
		return nil, fmt.Errorf("parse base58 secret: %w", err)
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("invalid secret key length %d", len(key))
	}
	return NewKeypairWallet(key), nil
}

// PublicKey returns the wallet address.
func (w *KeypairWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// SignTransaction signs tx in place. The wallet must be the fee payer.
func (w *KeypairWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx == nil || len(tx.Message.AccountKeys) == 0 {
		return fmt.Errorf("empty transaction")
	}
	pub := w.key.PublicKey()
	if !tx.Message.AccountKeys[0].Equals(pub) {
		return ErrNotSigner
	}

	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}

// Connector holds the currently connected wallet.
type Connector struct {
	mu      sync.RWMutex
	open    func(ctx context.Context) (Wallet, error)
	current Wallet
}

// NewConnector creates a connector that obtains wallets from open.
func NewConnector(open func(ctx context.Context) (Wallet, error)) *Connector {
	return &Connector{open: open}
}

// NewKeypairConnector creates a connector for a keypair file or base58 secret.
func NewKeypairConnector(source string) *Connector {
	return NewConnector(func(context.Context) (Wallet, error) {
		return LoadKeypair(source)
	})
}

// Connect opens the wallet. Connecting twice returns the existing wallet.
func (c *Connector) Connect(ctx context.Context) (Wallet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.current, nil
	}
	w, err := c.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect wallet: %w", err)
	}
	c.current = w
	return w, nil
}

// Disconnect forgets the connected wallet.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// Connected reports whether a wallet is connected.
func (c *Connector) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil
}

// Wallet returns the connected wallet or ErrNotConnected.
func (c *Connector) Wallet() (Wallet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil, ErrNotConnected
	}
	return c.current, nil
}
