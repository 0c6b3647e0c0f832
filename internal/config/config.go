// Package config loads runtime configuration for the server and cleanup binaries.
package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rugal-dominion/internal/txbuilder"
)

// PublicRPC is the last-resort mainnet endpoint.
const PublicRPC = "https://api.mainnet-beta.solana.com"

// Config holds all tunables. Keys are flat so RUGAL_FEE_PERCENT maps to fee_percent.
type Config struct {
	// RPC endpoints
	RPCURL       string `koanf:"rpc_url"`
	WSURL        string `koanf:"ws_url"`
	HeliusAPIKey string `koanf:"helius_api_key"`
	AnkrAPIKey   string `koanf:"ankr_api_key"`
	Commitment   string `koanf:"commitment"`

	// Signing and fees
	Keypair    string  `koanf:"keypair"`
	FeeWallet  string  `koanf:"fee_wallet"`
	FeePercent float64 `koanf:"fee_percent"`
	Simulate   bool    `koanf:"simulate"`

	// Points ledger
	LedgerURL    string `koanf:"ledger_url"`
	LedgerFile   string `koanf:"ledger_file"`
	ReferralCode string `koanf:"referral_code"`

	// Metadata
	TokenListURL     string        `koanf:"token_list_url"`
	MetadataCacheTTL time.Duration `koanf:"metadata_cache_ttl"`

	// Server and storage
	HTTPAddr      string `koanf:"http_addr"`
	PostgresDSN   string `koanf:"postgres_dsn"`
	ClickHouseDSN string `koanf:"clickhouse_dsn"`
	RedisURL      string `koanf:"redis_url"`
	UseMemory     bool   `koanf:"use_memory"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		Commitment:       "confirmed",
		FeeWallet:        txbuilder.DefaultFeeWallet,
		FeePercent:       txbuilder.DefaultFeePercent.InexactFloat64(),
		Simulate:         true,
		LedgerFile:       "rugal-leaderboard.json",
		MetadataCacheTTL: 24 * time.Hour,
		HTTPAddr:         ":8080",
	}
}

// FeePercentDecimal returns FeePercent for fee arithmetic.
func (c *Config) FeePercentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FeePercent)
}

// Endpoint is an RPC HTTP endpoint with its WebSocket counterpart.
type Endpoint struct {
	HTTP string
	WS   string
}

// BestEndpoint picks the RPC endpoint: explicit URL, then Helius, then Ankr,
// then the public mainnet endpoint. The WebSocket URL is derived from the HTTP
// URL unless WSURL is set alongside RPCURL.
func (c *Config) BestEndpoint() Endpoint {
	if c.RPCURL != "" {
		ws := c.WSURL
		if ws == "" {
			ws = ToWebSocket(c.RPCURL)
		}
		return Endpoint{HTTP: c.RPCURL, WS: ws}
	}
	if c.HeliusAPIKey != "" {
		u := "https://mainnet.helius-rpc.com/?api-key=" + c.HeliusAPIKey
		return Endpoint{HTTP: u, WS: ToWebSocket(u)}
	}
	if c.AnkrAPIKey != "" {
		u := "https://rpc.ankr.com/solana/" + c.AnkrAPIKey
		return Endpoint{HTTP: u, WS: ToWebSocket(u)}
	}
	return Endpoint{HTTP: PublicRPC, WS: ToWebSocket(PublicRPC)}
}

// ToWebSocket rewrites an http(s) URL to ws(s).
func ToWebSocket(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}
