package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"rugal-dominion/internal/domain"
)

// LocalKey is the key holding the leaderboard inside the local store file.
const LocalKey = "rugal-leaderboard"

// LocalEntry is the local ledger row.
type LocalEntry struct {
	Wallet        string    `json:"wallet"`
	Points        int64     `json:"points"`
	Absorbs       int64     `json:"absorbs"`
	TokenBurns    int64     `json:"tokenBurns"`
	NFTBurns      int64     `json:"nftBurns"`
	TotalFeesPaid uint64    `json:"totalFeesPaid"`
	LastActivity  time.Time `json:"lastActivity"`
}

// LocalLedger keeps the leaderboard in a JSON key/value file. Other keys in the
// file are preserved. Referral codes are ignored locally.
type LocalLedger struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewLocalLedger creates a ledger backed by the file at path.
func NewLocalLedger(path string) *LocalLedger {
	return &LocalLedger{path: path, now: time.Now}
}

// Award adds one unit of action to the wallet's local entry.
func (l *LocalLedger) Award(ctx context.Context, award domain.PointsAward) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if award.Wallet == "" || !award.Action.IsValid() {
		return fmt.Errorf("invalid award %s/%s", award.Wallet, award.Action)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	store, err := l.load()
	if err != nil {
		return err
	}
	entries, err := decodeEntries(store)
	if err != nil {
		return err
	}

	var entry *LocalEntry
	for i := range entries {
		if entries[i].Wallet == award.Wallet {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		entries = append(entries, LocalEntry{Wallet: award.Wallet})
		entry = &entries[len(entries)-1]
	}

	switch award.Action {
	case domain.ActionAbsorb:
		entry.Absorbs++
	case domain.ActionTokenBurn:
		entry.TokenBurns++
	case domain.ActionNFTBurn:
		entry.NFTBurns++
	}
	entry.Points += award.Action.Points()
	entry.TotalFeesPaid += award.FeesPaid
	entry.LastActivity = l.now().UTC()

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	store[LocalKey] = raw
	return l.save(store)
}

// Entries returns the local leaderboard ordered by points descending.
func (l *LocalLedger) Entries() ([]LocalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	store, err := l.load()
	if err != nil {
		return nil, err
	}
	entries, err := decodeEntries(store)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Points > entries[j].Points })
	return entries, nil
}

func (l *LocalLedger) load() (map[string]json.RawMessage, error) {
	store := make(map[string]json.RawMessage)
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local ledger: %w", err)
	}
	if len(data) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parse local ledger: %w", err)
	}
	return store, nil
}

// save writes atomically through a temp file in the same directory.
func (l *LocalLedger) save(store map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal local ledger: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".rugal-ledger-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write local ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close local ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace local ledger: %w", err)
	}
	return nil
}

func decodeEntries(store map[string]json.RawMessage) ([]LocalEntry, error) {
	raw, ok := store[LocalKey]
	if !ok {
		return nil, nil
	}
	var entries []LocalEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", LocalKey, err)
	}
	return entries, nil
}
