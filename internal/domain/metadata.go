package domain

// TokenMetadata represents display metadata resolved for a mint.
// Sources, in order: common token table, on-chain Metaplex account, token list, fallback names.
type TokenMetadata struct {
	Mint       string `json:"mint"`       // token mint address
	Name       string `json:"name"`       // display name (never empty after resolution)
	Symbol     string `json:"symbol"`     // ticker symbol
	URI        string `json:"uri"`        // off-chain JSON uri from the Metaplex account (may be empty)
	Image      string `json:"image"`      // normalised image URL
	Collection string `json:"collection"` // collection mint for NFTs (may be empty)
	Source     string `json:"source"`     // which lookup produced the name
	FetchedAt  int64  `json:"fetched_at"` // when metadata was resolved (ms)
}

// Metadata source labels.
const (
	MetadataSourceCommon    = "common"
	MetadataSourceOnChain   = "onchain"
	MetadataSourceTokenList = "tokenlist"
	MetadataSourceFallback  = "fallback"
)
