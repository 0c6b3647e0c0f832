package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature waits for a single confirmation notification of signature.
	// The returned channel yields at most one value and is closed afterwards.
	SubscribeSignature(ctx context.Context, signature, commitment string) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification represents a signatureSubscribe message.
type SignatureNotification struct {
	Signature string
	Slot      uint64
	Err       interface{}
}

// Failed reports whether the transaction landed with an error.
func (n SignatureNotification) Failed() bool {
	return n.Err != nil
}
