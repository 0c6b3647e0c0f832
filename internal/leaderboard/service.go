// Package leaderboard applies point awards and serves profiles.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/observability"
	"rugal-dominion/internal/storage"
)

// Limits.
const (
	DefaultLimit      = 50
	MaxLimit          = 50
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MaxReferralLength = 32
	MaxPictureBytes   = 2 * 1024 * 1024
)

var (
	// ErrInvalidAction is returned for an unknown action kind.
	ErrInvalidAction = errors.New("invalid action")
	// ErrInvalidInput is returned for missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUsernameTaken is returned when another wallet holds the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrReferralCodeTaken is returned when another wallet holds the referral code.
	ErrReferralCodeTaken = errors.New("referral code already taken")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Profile is a wallet's leaderboard view.
type Profile struct {
	Entry         *domain.LeaderboardEntry `json:"entry"`
	Rank          int                      `json:"rank"`
	Achievements  []domain.Achievement     `json:"achievements"`
	NextMilestone int64                    `json:"next_milestone"`
	NeedsUsername bool                     `json:"needs_username"`
	ReferralCode  string                   `json:"referral_code"`
}

// Service implements the leaderboard operations on top of storage.
type Service struct {
	store  storage.LeaderboardStore
	events storage.ActionEventStore
	logger *log.Logger
	now    func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithEventStore records an audit event for every award.
func WithEventStore(s storage.ActionEventStore) Option {
	return func(svc *Service) { svc.events = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// NewService creates a Service.
func NewService(store storage.LeaderboardStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: log.New(io.Discard, "", 0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Award applies one unit of action to the wallet and credits its referrer.
func (s *Service) Award(ctx context.Context, award domain.PointsAward) (*domain.LeaderboardEntry, error) {
	if strings.TrimSpace(award.Wallet) == "" {
		return nil, ErrInvalidInput
	}
	if !award.Action.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, award.Action)
	}
	// Stores keep fees in signed 64-bit columns.
	if award.FeesPaid > math.MaxInt64 {
		return nil, fmt.Errorf("%w: feesPaid %d out of range", ErrInvalidInput, award.FeesPaid)
	}

	now := s.now()
	entry, created, err := s.store.Upsert(ctx, award.Wallet, domain.DeltaFor(award.Action, award.FeesPaid, now))
	if err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}
	points := award.Action.Points()
	observability.RecordPointsAwarded(string(award.Action), points, false)

	if created && award.ReferralCode != "" {
		if err := s.linkReferrer(ctx, award.Wallet, award.ReferralCode, now); err != nil {
			s.logger.Printf("link referrer %q for %s: %v", award.ReferralCode, award.Wallet, err)
		}
		if e, err := s.store.Get(ctx, award.Wallet); err == nil {
			entry = e
		}
	}

	event := &domain.ActionEvent{
		EventID:     uuid.NewString(),
		Wallet:      award.Wallet,
		Action:      award.Action,
		Points:      points,
		FeesPaid:    award.FeesPaid,
		Signature:   award.Signature,
		TimestampMs: now.UnixMilli(),
	}

	if entry.ReferredBy != nil && *entry.ReferredBy != award.Wallet {
		bonus := ReferralShare(points)
		delta := domain.EntryDelta{
			Points:          bonus,
			ReferralRewards: uint64(ReferralShare(int64(award.FeesPaid))),
			At:              now,
		}
		if _, _, err := s.store.Upsert(ctx, *entry.ReferredBy, delta); err != nil {
			s.logger.Printf("credit referrer %s: %v", *entry.ReferredBy, err)
		} else {
			event.Referrer = *entry.ReferredBy
			event.BonusPoints = bonus
			observability.RecordPointsAwarded(string(award.Action), bonus, true)
		}
	}

	if s.events != nil {
		if err := s.events.Insert(ctx, event); err != nil {
			s.logger.Printf("record action event for %s: %v", award.Wallet, err)
		}
	}
	return entry, nil
}

// linkReferrer records the owner of code as referrer of a newly created wallet.
func (s *Service) linkReferrer(ctx context.Context, wallet, code string, now time.Time) error {
	referrer, err := s.store.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if referrer.Wallet == wallet {
		return nil
	}

	set, err := s.store.SetReferredBy(ctx, wallet, referrer.Wallet)
	if err != nil || !set {
		return err
	}
	_, _, err = s.store.Upsert(ctx, referrer.Wallet, domain.EntryDelta{ReferralsCount: 1, At: now})
	return err
}

// ReferralShare returns floor(v × 30%) for non-negative v without overflowing.
func ReferralShare(v int64) int64 {
	return v/100*domain.ReferralSharePct + v%100*domain.ReferralSharePct/100
}

// Top returns the highest-scoring entries. limit outside (0, MaxLimit] uses DefaultLimit.
func (s *Service) Top(ctx context.Context, limit int) ([]*domain.LeaderboardEntry, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	entries, err := s.store.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top entries: %w", err)
	}
	if entries == nil {
		entries = []*domain.LeaderboardEntry{}
	}
	return entries, nil
}

// Profile returns the wallet's entry with rank and achievements.
// A wallet without an entry gets an empty profile that needs a username.
func (s *Service) Profile(ctx context.Context, wallet string) (*Profile, error) {
	if wallet == "" {
		return nil, ErrInvalidInput
	}

	entry, err := s.store.Get(ctx, wallet)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		entry = &domain.LeaderboardEntry{Wallet: wallet}
	case err != nil:
		return nil, fmt.Errorf("get entry: %w", err)
	}

	p := &Profile{
		Entry:         entry,
		Achievements:  domain.Achievements(entry),
		NextMilestone: domain.NextMilestone(entry.Points),
		NeedsUsername: entry.Username == nil || *entry.Username == "",
		ReferralCode:  DefaultReferralCode(wallet),
	}
	if entry.ReferralCode != nil && *entry.ReferralCode != "" {
		p.ReferralCode = *entry.ReferralCode
	}

	if entry.ID != "" {
		rank, err := s.store.Rank(ctx, wallet)
		if err != nil {
			return nil, fmt.Errorf("rank entry: %w", err)
		}
		p.Rank = rank
	}
	return p, nil
}

// DefaultReferralCode is shown until a wallet picks its own code.
func DefaultReferralCode(wallet string) string {
	if len(wallet) > 8 {
		wallet = wallet[:8]
	}
	return strings.ToUpper(wallet)
}

// NormalizeUsername lowercases name and validates it.
func NormalizeUsername(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) < MinUsernameLength || len(n) > MaxUsernameLength || !usernamePattern.MatchString(n) {
		return "", fmt.Errorf("%w: username must be %d-%d characters of a-z, 0-9 or _", ErrInvalidInput, MinUsernameLength, MaxUsernameLength)
	}
	return n, nil
}

// UsernameAvailable reports whether name is free. Invalid names are never available.
func (s *Service) UsernameAvailable(ctx context.Context, name string) (bool, error) {
	n, err := NormalizeUsername(name)
	if err != nil {
		return false, err
	}
	_, err = s.store.GetByUsername(ctx, n)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup username: %w", err)
	}
	return false, nil
}

// SetProfile saves username and optional picture. The username also becomes the
// wallet's referral code.
func (s *Service) SetProfile(ctx context.Context, wallet, username, picture string) (*domain.LeaderboardEntry, error) {
	if wallet == "" {
		return nil, ErrInvalidInput
	}
	name, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if err := ValidatePicture(picture); err != nil {
		return nil, err
	}

	if other, err := s.store.GetByUsername(ctx, name); err == nil && other.Wallet != wallet {
		return nil, ErrUsernameTaken
	}
	if other, err := s.store.GetByReferralCode(ctx, name); err == nil && other.Wallet != wallet {
		return nil, ErrReferralCodeTaken
	}

	var pic *string
	if picture != "" {
		pic = &picture
	}
	if _, err := s.store.UpdateProfile(ctx, wallet, &name, pic); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	entry, err := s.store.SetReferralCode(ctx, wallet, name)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrReferralCodeTaken
		}
		return nil, fmt.Errorf("set referral code: %w", err)
	}
	return entry, nil
}

// ValidatePicture accepts an empty value, an http(s) URL or an image data URL up to MaxPictureBytes.
func ValidatePicture(picture string) error {
	switch {
	case picture == "":
		return nil
	case len(picture) > MaxPictureBytes:
		return fmt.Errorf("%w: profile picture exceeds %d bytes", ErrInvalidInput, MaxPictureBytes)
	case strings.HasPrefix(picture, "data:image/"),
		strings.HasPrefix(picture, "https://"),
		strings.HasPrefix(picture, "http://"):
		return nil
	default:
		return fmt.Errorf("%w: profile picture must be an image data URL or http(s) URL", ErrInvalidInput)
	}
}

// SetReferralCode assigns a custom referral code to wallet.
func (s *Service) SetReferralCode(ctx context.Context, wallet, code string) (*domain.LeaderboardEntry, error) {
	code = strings.TrimSpace(code)
	if wallet == "" || code == "" || len(code) > MaxReferralLength {
		return nil, ErrInvalidInput
	}
	if other, err := s.store.GetByReferralCode(ctx, code); err == nil && other.Wallet != wallet {
		return nil, ErrReferralCodeTaken
	}
	entry, err := s.store.SetReferralCode(ctx, wallet, code)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrReferralCodeTaken
		}
		return nil, fmt.Errorf("set referral code: %w", err)
	}
	return entry, nil
}

// Activity returns recent award events for wallet, including referral bonuses it received.
func (s *Service) Activity(ctx context.Context, wallet string, limit int) ([]*domain.ActionEvent, error) {
	if wallet == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	if s.events == nil {
		return []*domain.ActionEvent{}, nil
	}
	events, err := s.events.GetByWallet(ctx, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	if events == nil {
		events = []*domain.ActionEvent{}
	}
	return events, nil
}
