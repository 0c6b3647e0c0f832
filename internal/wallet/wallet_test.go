package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferTx(t *testing.T, payer, to solana.PublicKey) *solana.Transaction {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer, to).Build()},
		solana.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"),
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

func TestKeypairWallet_SignTransaction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w := NewKeypairWallet(key)

	other := solana.NewWallet().PublicKey()
	tx := transferTx(t, w.PublicKey(), other)

	require.NoError(t, w.SignTransaction(context.Background(), tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}

func TestKeypairWallet_NotSigner(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w := NewKeypairWallet(key)

	stranger := solana.NewWallet().PublicKey()
	tx := transferTx(t, stranger, w.PublicKey())

	err = w.SignTransaction(context.Background(), tx)
	assert.True(t, errors.Is(err, ErrNotSigner))
}

func TestLoadKeypair_Base58(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := LoadKeypair(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
}

func TestLoadKeypair_KeygenFile(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	w, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
}

func TestLoadKeypair_Invalid(t *testing.T) {
	_, err := LoadKeypair("")
	assert.Error(t, err)

	_, err = LoadKeypair("not-a-key!")
	assert.Error(t, err)
}

func TestConnector(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	opens := 0
	c := NewConnector(func(context.Context) (Wallet, error) {
		opens++
		return NewKeypairWallet(key), nil
	})

	assert.False(t, c.Connected())
	_, err = c.Wallet()
	assert.ErrorIs(t, err, ErrNotConnected)

	w, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
	assert.True(t, c.Connected())

	_, err = c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, opens)

	c.Disconnect()
	assert.False(t, c.Connected())
	_, err = c.Wallet()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnector_OpenError(t *testing.T) {
	c := NewKeypairConnector(filepath.Join(t.TempDir(), "missing.json"))
	_, err := c.Connect(context.Background())
	assert.Error(t, err)
	assert.False(t, c.Connected())
}
