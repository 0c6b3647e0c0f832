// Package ledger reports awarded points to the leaderboard.
package ledger

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/observability"
)

// Ledger records one unit of action.
type Ledger interface {
	Award(ctx context.Context, award domain.PointsAward) error
}

// FallbackLedger writes to the primary ledger and falls back to the local one on
// any error. With no primary configured every award goes to the local ledger.
type FallbackLedger struct {
	primary Ledger
	local   *LocalLedger
	logger  *log.Logger
}

// NewFallbackLedger creates a FallbackLedger. primary may be nil.
func NewFallbackLedger(primary Ledger, local *LocalLedger, logger *log.Logger) *FallbackLedger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &FallbackLedger{primary: primary, local: local, logger: logger}
}

// Award records award, degrading to the local ledger.
func (l *FallbackLedger) Award(ctx context.Context, award domain.PointsAward) error {
	if l.primary != nil {
		err := l.primary.Award(ctx, award)
		observability.RecordLedgerAward("http", err)
		if err == nil {
			return nil
		}
		l.logger.Printf("ledger award failed for %s, using local ledger: %v", award.Wallet, err)
	}
	err := l.local.Award(ctx, award)
	observability.RecordLedgerAward("local", err)
	return err
}

// Async awards in the background. Failures are logged and never returned.
type Async struct {
	ledger  Ledger
	logger  *log.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps ledger for fire-and-forget awards.
func NewAsync(ledger Ledger, logger *log.Logger) *Async {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Async{ledger: ledger, logger: logger, timeout: 30 * time.Second}
}

// AwardAsync sends each award in order on a background goroutine.
func (a *Async) AwardAsync(awards ...domain.PointsAward) {
	if len(awards) == 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		for _, award := range awards {
			if err := a.ledger.Award(ctx, award); err != nil {
				a.logger.Printf("award %s for %s dropped: %v", award.Action, award.Wallet, err)
			}
		}
	}()
}

// Wait blocks until all pending awards have been attempted.
func (a *Async) Wait() {
	a.wg.Wait()
}
