package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"rugal-dominion/internal/domain"
	solrpc "rugal-dominion/internal/solana"
	"rugal-dominion/internal/solana/stub"
	"rugal-dominion/internal/txbuilder"
	"rugal-dominion/internal/wallet"
)

func newTestPlan(t *testing.T, owner solana.PublicKey) *txbuilder.Plan {
	t.Helper()
	accounts := []domain.TokenAccount{
		{Address: solana.NewWallet().PublicKey().String(), Mint: solana.NewWallet().PublicKey().String()},
	}
	plan, err := txbuilder.New().BuildAbsorb(owner, accounts, 2039280, 1_000_000_000)
	if err != nil {
		t.Fatalf("BuildAbsorb failed: %v", err)
	}
	return plan
}

func newTestWallet() *wallet.KeypairWallet {
	return wallet.NewKeypairWallet(solana.NewWallet().PrivateKey)
}

func newTestPipeline(rpc solrpc.RPCClient, opts ...Option) *Pipeline {
	return New(rpc, append([]Option{WithPollInterval(time.Millisecond)}, opts...)...)
}

func TestSubmit_ConfirmedByPolling(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetStatus(rpc.NextSignature, &solrpc.SignatureStatus{Slot: 42, ConfirmationStatus: solrpc.CommitmentConfirmed})
	w := newTestWallet()

	res, err := newTestPipeline(rpc).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Signature != rpc.NextSignature || res.Slot != 42 {
		t.Errorf("unexpected result: %+v", res)
	}
	if rpc.SentCount() != 1 {
		t.Errorf("expected exactly one send, got %d", rpc.SentCount())
	}
	if len(rpc.Simulated) != 1 {
		t.Errorf("expected simulation by default, got %d", len(rpc.Simulated))
	}
}

func TestSubmit_SentTransactionIsSigned(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetStatus(rpc.NextSignature, &solrpc.SignatureStatus{ConfirmationStatus: solrpc.CommitmentFinalized})
	w := newTestWallet()

	if _, err := newTestPipeline(rpc).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Simulated copy carries a zero signature; the sent one a real signature of the same length.
	simulated, sent := rpc.Simulated[0], rpc.Sent[0]
	if len(simulated) != len(sent) {
		t.Fatalf("simulated and sent sizes differ: %d vs %d", len(simulated), len(sent))
	}
	if sent[0] != 1 {
		t.Fatalf("expected one signature, got %d", sent[0])
	}
	zero := make([]byte, 64)
	if string(sent[1:65]) == string(zero) {
		t.Error("sent transaction is not signed")
	}
	if string(simulated[1:65]) != string(zero) {
		t.Error("simulated transaction should carry an empty signature")
	}
}

func TestSubmit_SimulationFailureStopsBeforeSend(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SimulationErr = map[string]interface{}{"InstructionError": []interface{}{0, "InvalidAccountData"}}
	w := newTestWallet()

	_, err := newTestPipeline(rpc).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if !errors.Is(err, ErrSimulationFailed) {
		t.Fatalf("expected ErrSimulationFailed, got %v", err)
	}
	if rpc.SentCount() != 0 {
		t.Errorf("nothing must be sent after failed simulation, got %d", rpc.SentCount())
	}
}

func TestSubmit_SimulationDisabled(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SimulationErr = "would fail"
	rpc.SetStatus(rpc.NextSignature, &solrpc.SignatureStatus{ConfirmationStatus: solrpc.CommitmentConfirmed})
	w := newTestWallet()

	_, err := newTestPipeline(rpc, WithSimulation(false)).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(rpc.Simulated) != 0 {
		t.Errorf("simulation must be skipped, got %d", len(rpc.Simulated))
	}
}

func TestSubmit_SendError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendErr = errors.New("blockhash not found")
	w := newTestWallet()

	_, err := newTestPipeline(rpc).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
	if rpc.SentCount() != 1 {
		t.Errorf("send must not be retried, got %d", rpc.SentCount())
	}
}

func TestSubmit_OnChainError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetStatus(rpc.NextSignature, &solrpc.SignatureStatus{
		ConfirmationStatus: solrpc.CommitmentConfirmed,
		Err:                map[string]interface{}{"InstructionError": []interface{}{1, "Custom"}},
	})
	w := newTestWallet()

	res, err := newTestPipeline(rpc).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
	if res == nil || res.Signature != rpc.NextSignature {
		t.Errorf("failed result should still carry the signature: %+v", res)
	}
}

func TestSubmit_Expired(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BlockStep = 100
	w := newTestWallet()

	_, err := newTestPipeline(rpc).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if rpc.SentCount() != 1 {
		t.Errorf("expired transaction must not be resent, got %d", rpc.SentCount())
	}
}

func TestSubmit_WrongWallet(t *testing.T) {
	rpc := stub.NewRPCClient()
	plan := newTestPlan(t, solana.NewWallet().PublicKey())

	_, err := newTestPipeline(rpc).Submit(context.Background(), plan, newTestWallet())
	if !errors.Is(err, wallet.ErrNotSigner) {
		t.Fatalf("expected ErrNotSigner, got %v", err)
	}
}

type fakeWS struct {
	notification solrpc.SignatureNotification
	subscribeErr error
}

func (f *fakeWS) SubscribeSignature(_ context.Context, signature, _ string) (<-chan solrpc.SignatureNotification, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	ch := make(chan solrpc.SignatureNotification, 1)
	n := f.notification
	n.Signature = signature
	ch <- n
	close(ch)
	return ch, nil
}

func (f *fakeWS) Close() error { return nil }

func TestSubmit_ConfirmedByWebSocket(t *testing.T) {
	rpc := stub.NewRPCClient()
	w := newTestWallet()
	ws := &fakeWS{notification: solrpc.SignatureNotification{Slot: 7}}

	pipeline := New(rpc, WithWSClient(ws), WithPollInterval(time.Hour))
	res, err := pipeline.Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Slot != 7 {
		t.Errorf("expected slot from notification, got %d", res.Slot)
	}
}

// silentWS accepts subscriptions but never delivers a notification.
type silentWS struct{}

func (silentWS) SubscribeSignature(context.Context, string, string) (<-chan solrpc.SignatureNotification, error) {
	return make(chan solrpc.SignatureNotification), nil
}

func (silentWS) Close() error { return nil }

func TestSubmit_SilentWebSocketStillConfirmsByPolling(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetStatus(rpc.NextSignature, &solrpc.SignatureStatus{Slot: 7, ConfirmationStatus: solrpc.CommitmentConfirmed})
	rpc.BlockStep = 200
	w := newTestWallet()

	res, err := newTestPipeline(rpc, WithWSClient(silentWS{})).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if err != nil {
		t.Fatalf("landed transaction must not be reported as failed: %v", err)
	}
	if res.Slot != 7 {
		t.Errorf("expected slot from status poll, got %d", res.Slot)
	}
}

func TestSubmit_WebSocketReportsFailure(t *testing.T) {
	rpc := stub.NewRPCClient()
	w := newTestWallet()
	ws := &fakeWS{notification: solrpc.SignatureNotification{Err: "custom program error"}}

	_, err := New(rpc, WithWSClient(ws), WithPollInterval(time.Hour)).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
}

func TestSubmit_WebSocketSubscribeFailureFallsBackToPolling(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetStatus(rpc.NextSignature, &solrpc.SignatureStatus{ConfirmationStatus: solrpc.CommitmentConfirmed})
	w := newTestWallet()
	ws := &fakeWS{subscribeErr: errors.New("not connected")}

	_, err := newTestPipeline(rpc, WithWSClient(ws)).Submit(context.Background(), newTestPlan(t, w.PublicKey()), w)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	if UserMessage(nil) != "" {
		t.Error("nil error must map to empty message")
	}
	wrapped := errors.Join(errors.New("rpc detail: 0x1771"), ErrSimulationFailed)
	if got := UserMessage(wrapped); got != "Transaction simulation failed. Please try again." {
		t.Errorf("unexpected message %q", got)
	}
	if got := UserMessage(errors.New("internal detail")); got != "Transaction failed. Please try again." {
		t.Errorf("raw errors must map to a generic message, got %q", got)
	}
}
