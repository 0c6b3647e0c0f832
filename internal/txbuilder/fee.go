package txbuilder

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Fee constants.
const (
	// DefaultFeeWallet receives the service fee.
	DefaultFeeWallet = "5YjWWvfD1r2YaHqtHbzBYvyjWbpLYT8ebVgyngCJXFVU"
	// NetworkFeeEstimate is the flat per-transaction network fee kept in reserve.
	NetworkFeeEstimate = 5000
	// LamportsPerSOL converts lamports to SOL.
	LamportsPerSOL = 1_000_000_000
)

// DefaultFeePercent is the service fee as a percentage of the reclaimed rent.
var DefaultFeePercent = decimal.NewFromFloat(2.0)

var hundred = decimal.NewFromInt(100)

// ComputeAbsorbFee returns floor(rent × n × pct / 100).
func ComputeAbsorbFee(rent uint64, n int, pct decimal.Decimal) uint64 {
	if n <= 0 {
		return 0
	}
	return percentOf(fromUint(rent).Mul(decimal.NewFromInt(int64(n))), pct)
}

// ComputeBurnFee returns floor(rent × pct / 100), charged once per burn transaction.
func ComputeBurnFee(rent uint64, pct decimal.Decimal) uint64 {
	return percentOf(fromUint(rent), pct)
}

// ShouldChargeFee reports whether the payer can cover fee plus the network fee.
// A fee that cannot be covered is skipped rather than blocking the action.
func ShouldChargeFee(balance, fee uint64) bool {
	return fee > 0 && balance >= fee+NetworkFeeEstimate
}

// FormatSOL renders lamports as SOL.
func FormatSOL(lamports uint64) string {
	return fromUint(lamports).Div(decimal.NewFromInt(LamportsPerSOL)).String()
}

func percentOf(amount, pct decimal.Decimal) uint64 {
	v := amount.Mul(pct).Div(hundred).Floor()
	if !v.IsPositive() {
		return 0
	}
	return v.BigInt().Uint64()
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
