// Package submit signs, sends and confirms cleanup transactions.
package submit

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"

	"rugal-dominion/internal/observability"
	solrpc "rugal-dominion/internal/solana"
	"rugal-dominion/internal/txbuilder"
	"rugal-dominion/internal/wallet"
)

// DefaultPollInterval is the status polling period when no WebSocket is configured.
const DefaultPollInterval = 2 * time.Second

// Result is a confirmed submission.
type Result struct {
	Signature string
	Slot      uint64
}

// Pipeline submits plans: blockhash, optional simulation, signature, a single
// send and confirmation. A transaction is never resent.
type Pipeline struct {
	rpc          solrpc.RPCClient
	ws           solrpc.WSClient
	simulate     bool
	commitment   string
	pollInterval time.Duration
	logger       *log.Logger
}

// Option configures Pipeline.
type Option func(*Pipeline)

// WithWSClient confirms through signatureSubscribe instead of polling.
func WithWSClient(ws solrpc.WSClient) Option {
	return func(p *Pipeline) { p.ws = ws }
}

// WithSimulation toggles simulate-before-send.
func WithSimulation(enabled bool) Option {
	return func(p *Pipeline) { p.simulate = enabled }
}

// WithCommitment sets the confirmation commitment.
func WithCommitment(c string) Option {
	return func(p *Pipeline) { p.commitment = c }
}

// WithPollInterval sets the status polling period.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.pollInterval = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline. Simulation is on by default.
func New(rpc solrpc.RPCClient, opts ...Option) *Pipeline {
	p := &Pipeline{
		rpc:          rpc,
		simulate:     true,
		commitment:   solrpc.CommitmentConfirmed,
		pollInterval: DefaultPollInterval,
		logger:       log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit runs plan through the pipeline with w as signer and fee payer.
func (p *Pipeline) Submit(ctx context.Context, plan *txbuilder.Plan, w wallet.Wallet) (res *Result, err error) {
	start := time.Now()
	defer func() {
		observability.RecordTransaction(string(plan.Action), status(err), plan.ChargedFee(), time.Since(start).Seconds())
	}()

	if !plan.Owner.Equals(w.PublicKey()) {
		return nil, fmt.Errorf("%w: plan owner %s", wallet.ErrNotSigner, plan.Owner)
	}

	bh, err := p.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}
	tx, err := plan.Transaction(bh.Blockhash)
	if err != nil {
		return nil, err
	}

	if p.simulate {
		if err := p.simulateTx(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := w.SignTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err := p.rpc.SendTransaction(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	p.logger.Printf("%s sent %s (%d items, fee %d)", plan.Action, sig, len(plan.Items), plan.ChargedFee())

	slot, err := p.confirm(ctx, sig, bh.LastValidBlockHeight)
	if err != nil {
		return &Result{Signature: sig}, err
	}
	return &Result{Signature: sig, Slot: slot}, nil
}

// simulateTx simulates tx with empty signatures, leaving tx unsigned.
func (p *Pipeline) simulateTx(ctx context.Context, tx *solana.Transaction) error {
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := tx.MarshalBinary()
	tx.Signatures = nil
	if err != nil {
		return fmt.Errorf("serialize for simulation: %w", err)
	}

	sim, err := p.rpc.SimulateTransaction(ctx, raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSimulationFailed, err)
	}
	if sim.Err != nil {
		for _, l := range sim.Logs {
			p.logger.Printf("simulation log: %s", l)
		}
		return fmt.Errorf("%w: %v", ErrSimulationFailed, sim.Err)
	}
	return nil
}

// confirm waits for sig to reach the pipeline commitment or for the blockhash to expire.
func (p *Pipeline) confirm(ctx context.Context, sig string, lastValid uint64) (uint64, error) {
	var notify <-chan solrpc.SignatureNotification
	if p.ws != nil {
		ch, err := p.ws.SubscribeSignature(ctx, sig, p.commitment)
		if err != nil {
			p.logger.Printf("signature subscribe failed, polling instead: %v", err)
		} else {
			notify = ch
		}
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()

		case n, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			if n.Failed() {
				return n.Slot, fmt.Errorf("%w: %v", ErrTransactionFailed, n.Err)
			}
			return n.Slot, nil

		case <-ticker.C:
			// Notifications can be dropped on reconnect; status is always polled.
			slot, done, err := p.pollStatus(ctx, sig)
			if done || err != nil {
				return slot, err
			}
			height, err := p.rpc.GetBlockHeight(ctx)
			if err != nil {
				p.logger.Printf("get block height: %v", err)
				continue
			}
			if height > lastValid {
				return 0, ErrExpired
			}
		}
	}
}

// pollStatus reports whether sig is confirmed. Transient RPC errors are logged and retried.
func (p *Pipeline) pollStatus(ctx context.Context, sig string) (uint64, bool, error) {
	statuses, err := p.rpc.GetSignatureStatuses(ctx, []string{sig})
	if err != nil {
		p.logger.Printf("get signature status: %v", err)
		return 0, false, nil
	}
	if len(statuses) == 0 || statuses[0] == nil {
		return 0, false, nil
	}
	st := statuses[0]
	if st.Err != nil {
		return st.Slot, true, fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err)
	}
	if commitmentRank[st.ConfirmationStatus] >= commitmentRank[p.commitment] {
		return st.Slot, true, nil
	}
	return 0, false, nil
}

var commitmentRank = map[string]int{
	"":                         -1,
	solrpc.CommitmentProcessed: 1,
	solrpc.CommitmentConfirmed: 2,
	solrpc.CommitmentFinalized: 3,
}
