// Package metadata resolves display names and images for token mints.
package metadata

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/observability"
	solrpc "rugal-dominion/internal/solana"
	"rugal-dominion/internal/storage"
)

// DefaultConcurrency bounds parallel lookups in ResolveAll.
const DefaultConcurrency = 8

// AccountReader reads raw account data.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solrpc.AccountInfo, error)
}

// Resolver looks up metadata from, in order: the common token table, the cache,
// the on-chain Metaplex account, the token list and finally mint-derived names.
type Resolver struct {
	rpc          AccountReader
	http         *http.Client
	tokenListURL string
	tokenList    *TokenList
	cache        storage.TokenMetadataStore
	logger       *log.Logger
	maxRetries   int
	initialDelay time.Duration
	concurrency  int
	now          func() time.Time
}

// Option configures Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for off-chain JSON and the token list.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.http = c }
}

// WithTokenListURL overrides the token list location.
func WithTokenListURL(url string) Option {
	return func(r *Resolver) { r.tokenListURL = url }
}

// WithCache sets the metadata cache.
func WithCache(c storage.TokenMetadataStore) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithRetry sets retry parameters for HTTP lookups.
func WithRetry(maxRetries int, initialDelay time.Duration) Option {
	return func(r *Resolver) {
		r.maxRetries = maxRetries
		r.initialDelay = initialDelay
	}
}

// WithConcurrency bounds parallel lookups in ResolveAll.
func WithConcurrency(n int) Option {
	return func(r *Resolver) { r.concurrency = n }
}

// NewResolver creates a resolver reading Metaplex accounts through rpc.
func NewResolver(rpc AccountReader, opts ...Option) *Resolver {
	r := &Resolver{
		rpc:          rpc,
		http:         &http.Client{Timeout: 10 * time.Second},
		logger:       log.New(io.Discard, "", 0),
		maxRetries:   DefaultMaxRetries,
		initialDelay: DefaultInitialDelay,
		concurrency:  DefaultConcurrency,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.tokenList = NewTokenList(r.tokenListURL, r.http)
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	return r
}

// Resolve returns display metadata for mint. It never fails: lookups that error
// are logged and the next source is tried, ending with mint-derived names.
func (r *Resolver) Resolve(ctx context.Context, mint string, nft bool) *domain.TokenMetadata {
	if m, ok := Common(mint); ok {
		observability.RecordMetadataLookup(m.Source)
		return finish(m, r.now())
	}

	if r.cache != nil {
		m, err := r.cache.GetByMint(ctx, mint)
		if err == nil {
			observability.RecordMetadataLookup("cache")
			return m
		}
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Printf("metadata cache read %s: %v", mint, err)
		}
	}

	m := r.lookup(ctx, mint, nft)
	observability.RecordMetadataLookup(m.Source)
	finish(m, r.now())

	if r.cache != nil && m.Source != domain.MetadataSourceFallback {
		if err := r.cache.Put(ctx, m); err != nil {
			r.logger.Printf("metadata cache write %s: %v", mint, err)
		}
	}
	return m
}

// ResolveAll resolves the mints of accounts concurrently, keyed by mint.
func (r *Resolver) ResolveAll(ctx context.Context, accounts []domain.TokenAccount) map[string]*domain.TokenMetadata {
	var (
		mu  sync.Mutex
		out = make(map[string]*domain.TokenMetadata, len(accounts))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	seen := make(map[string]struct{}, len(accounts))
	for _, acct := range accounts {
		if _, dup := seen[acct.Mint]; dup {
			continue
		}
		seen[acct.Mint] = struct{}{}

		acct := acct
		g.Go(func() error {
			m := r.Resolve(gctx, acct.Mint, acct.IsNFTLike())
			mu.Lock()
			out[acct.Mint] = m
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) lookup(ctx context.Context, mint string, nft bool) *domain.TokenMetadata {
	onchain, err := r.onChain(ctx, mint)
	if err != nil {
		r.logger.Printf("metaplex lookup %s: %v", mint, err)
	}
	if onchain != nil && onchain.Name != "" {
		m := &domain.TokenMetadata{
			Mint:       mint,
			Name:       onchain.Name,
			Symbol:     onchain.Symbol,
			URI:        onchain.URI,
			Collection: onchain.Collection,
			Source:     domain.MetadataSourceOnChain,
		}
		if onchain.URI != "" {
			image, err := r.offChainImage(ctx, onchain.URI)
			if err != nil {
				r.logger.Printf("off-chain json %s: %v", onchain.URI, err)
			}
			m.Image = image
		}
		return m
	}

	var entry TokenListEntry
	var ok bool
	err = RetryWithBackoff(ctx, r.maxRetries, r.initialDelay, func(ctx context.Context) error {
		var err error
		entry, ok, err = r.tokenList.Lookup(ctx, mint)
		return err
	})
	if err != nil {
		r.logger.Printf("token list lookup %s: %v", mint, err)
	}
	if ok && entry.Name != "" {
		return &domain.TokenMetadata{
			Mint:   mint,
			Name:   entry.Name,
			Symbol: entry.Symbol,
			Image:  entry.LogoURI,
			Source: domain.MetadataSourceTokenList,
		}
	}

	return Fallback(mint, nft)
}

// onChain reads and parses the Metaplex metadata account. Returns nil, nil when absent.
func (r *Resolver) onChain(ctx context.Context, mint string) (*OnChainMetadata, error) {
	if r.rpc == nil {
		return nil, nil
	}
	pda, err := MetadataPDA(mint)
	if err != nil {
		return nil, err
	}

	// The RPC client retries transient failures itself.
	info, err := r.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil || info.Data == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata account: %w", err)
	}
	return ParseMetaplex(data)
}

// offChainImage fetches the JSON document at uri and returns its image field.
func (r *Resolver) offChainImage(ctx context.Context, uri string) (string, error) {
	var doc struct {
		Image string `json:"image"`
	}
	url := NormalizeImageURL(uri)
	err := RetryWithBackoff(ctx, r.maxRetries, r.initialDelay, func(ctx context.Context) error {
		return getJSON(ctx, r.http, url, &doc)
	})
	if err != nil {
		return "", err
	}
	return doc.Image, nil
}

func finish(m *domain.TokenMetadata, now time.Time) *domain.TokenMetadata {
	m.Image = NormalizeImageURL(m.Image)
	m.FetchedAt = now.UnixMilli()
	return m
}
