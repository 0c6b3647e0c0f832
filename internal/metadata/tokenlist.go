package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// DefaultTokenListURL is the community token list.
const DefaultTokenListURL = "https://raw.githubusercontent.com/solana-labs/token-list/main/src/tokens/solana.tokenlist.json"

// TokenListEntry is one token of the list.
type TokenListEntry struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	LogoURI string `json:"logoURI"`
}

type tokenListFile struct {
	Tokens []TokenListEntry `json:"tokens"`
}

// TokenList downloads the list once and serves lookups from memory.
// A failed download is retried on the next lookup.
type TokenList struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	byMint map[string]TokenListEntry
}

// NewTokenList creates a token list backed by url.
func NewTokenList(url string, client *http.Client) *TokenList {
	if url == "" {
		url = DefaultTokenListURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenList{url: url, client: client}
}

// Lookup returns the entry for mint. ok is false when the mint is not listed.
func (l *TokenList) Lookup(ctx context.Context, mint string) (entry TokenListEntry, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.byMint == nil {
		byMint, err := l.load(ctx)
		if err != nil {
			return TokenListEntry{}, false, err
		}
		l.byMint = byMint
	}
	entry, ok = l.byMint[mint]
	return entry, ok, nil
}

func (l *TokenList) load(ctx context.Context) (map[string]TokenListEntry, error) {
	var file tokenListFile
	if err := getJSON(ctx, l.client, l.url, &file); err != nil {
		return nil, fmt.Errorf("load token list: %w", err)
	}
	byMint := make(map[string]TokenListEntry, len(file.Tokens))
	for _, t := range file.Tokens {
		byMint[t.Address] = t
	}
	return byMint, nil
}

// getJSON fetches url and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{URL: url, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
