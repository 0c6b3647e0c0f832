package metadata

import (
	"strings"

	"rugal-dominion/internal/domain"
)

const logoBase = "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/"

// commonTokens are answered without any network lookup.
var commonTokens = map[string]domain.TokenMetadata{
	"So11111111111111111111111111111111111111112": {
		Name: "Solana", Symbol: "SOL",
		Image: logoBase + "So11111111111111111111111111111111111111112/logo.png",
	},
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {
		Name: "USD Coin", Symbol: "USDC",
		Image: logoBase + "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v/logo.png",
	},
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {
		Name: "Tether USD", Symbol: "USDT",
		Image: logoBase + "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB/logo.png",
	},
}

// Common returns the built-in metadata for well-known mints.
func Common(mint string) (*domain.TokenMetadata, bool) {
	m, ok := commonTokens[mint]
	if !ok {
		return nil, false
	}
	m.Mint = mint
	m.Source = domain.MetadataSourceCommon
	return &m, true
}

// Fallback builds display names from the mint address alone.
func Fallback(mint string, nft bool) *domain.TokenMetadata {
	m := &domain.TokenMetadata{Mint: mint, Source: domain.MetadataSourceFallback}
	if nft {
		m.Name = "NFT #" + prefix(mint, 4)
		return m
	}
	short := prefix(mint, 8)
	end := mint
	if len(mint) > 4 {
		end = mint[len(mint)-4:]
	}
	m.Name = "Token " + short + "..." + end
	m.Symbol = strings.ToUpper(short)
	return m
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
