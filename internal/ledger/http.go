package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rugal-dominion/internal/domain"
)

// HTTPLedger posts awards to the leaderboard API.
type HTTPLedger struct {
	endpoint string
	client   *http.Client
}

// NewHTTPLedger creates a ledger for the API at baseURL.
func NewHTTPLedger(baseURL string, client *http.Client) *HTTPLedger {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPLedger{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/leaderboard",
		client:   client,
	}
}

// Award posts award. Any non-2xx response is an error.
func (l *HTTPLedger) Award(ctx context.Context, award domain.PointsAward) error {
	body, err := json.Marshal(award)
	if err != nil {
		return fmt.Errorf("marshal award: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP error! status: %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
