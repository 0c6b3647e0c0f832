package txbuilder

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeAbsorbFee(t *testing.T) {
	tests := []struct {
		rent uint64
		n    int
		pct  decimal.Decimal
		want uint64
	}{
		{rent: 2039280, n: 1, pct: DefaultFeePercent, want: 40785},
		{rent: 2039280, n: 3, pct: DefaultFeePercent, want: 122356},
		{rent: 2039280, n: 0, pct: DefaultFeePercent, want: 0},
		{rent: 99, n: 1, pct: DefaultFeePercent, want: 1},
		{rent: 49, n: 1, pct: DefaultFeePercent, want: 0},
		{rent: 2039280, n: 1, pct: decimal.NewFromFloat(2.5), want: 50982},
	}
	for _, tt := range tests {
		if got := ComputeAbsorbFee(tt.rent, tt.n, tt.pct); got != tt.want {
			t.Errorf("ComputeAbsorbFee(%d, %d, %s) = %d, want %d", tt.rent, tt.n, tt.pct, got, tt.want)
		}
	}
}

func TestComputeBurnFee(t *testing.T) {
	if got := ComputeBurnFee(2039280, DefaultFeePercent); got != 40785 {
		t.Errorf("expected 40785, got %d", got)
	}
	if got := ComputeBurnFee(0, DefaultFeePercent); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestShouldChargeFee(t *testing.T) {
	tests := []struct {
		balance, fee uint64
		want         bool
	}{
		{balance: 45785, fee: 40785, want: true},
		{balance: 45784, fee: 40785, want: false},
		{balance: 1_000_000, fee: 0, want: false},
		{balance: 0, fee: 1, want: false},
	}
	for _, tt := range tests {
		if got := ShouldChargeFee(tt.balance, tt.fee); got != tt.want {
			t.Errorf("ShouldChargeFee(%d, %d) = %v, want %v", tt.balance, tt.fee, got, tt.want)
		}
	}
}

func TestFormatSOL(t *testing.T) {
	if got := FormatSOL(2039280); got != "0.00203928" {
		t.Errorf("unexpected %s", got)
	}
	if got := FormatSOL(1_500_000_000); got != "1.5" {
		t.Errorf("unexpected %s", got)
	}
}
