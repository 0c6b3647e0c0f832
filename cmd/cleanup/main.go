// Package main provides the wallet cleanup CLI:
// - scan: list empty, fungible and NFT token accounts
// - absorb: close empty accounts and reclaim their rent
// - burn-tokens / burn-nfts: burn balances and close the accounts
package main

import (
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
