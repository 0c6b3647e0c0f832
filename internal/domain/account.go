package domain

// TokenAccountSize is the byte size of an SPL token account; rent exemption is computed for it.
const TokenAccountSize = 165

// TokenAccount is one SPL token account owned by the connected wallet.
// Read-only, sourced from a scan and discarded after the originating transaction completes.
type TokenAccount struct {
	Address  string  // token account public key
	Mint     string  // mint public key
	Owner    string  // owning wallet
	Amount   uint64  // raw balance in base units
	Decimals uint8   // mint decimals
	UIAmount float64 // balance adjusted by decimals, display only
	Frozen   bool    // account state == frozen
	Lamports uint64  // lamports held by the account (its rent deposit)
}

// IsEmpty reports whether the account holds no tokens.
func (a TokenAccount) IsEmpty() bool {
	return a.Amount == 0
}

// IsNFTLike reports the balance=1, decimals=0 shape used to recognise NFTs.
func (a TokenAccount) IsNFTLike() bool {
	return a.Amount == 1 && a.Decimals == 0
}

// AccountClass is the scanner's classification of a token account.
type AccountClass string

const (
	AccountClassEmpty      AccountClass = "empty"
	AccountClassNFT        AccountClass = "nft"
	AccountClassFungible   AccountClass = "fungible"
	AccountClassCompressed AccountClass = "compressed"
)

// String returns the string representation of AccountClass.
func (c AccountClass) String() string {
	return string(c)
}
