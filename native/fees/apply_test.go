package fees

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestPriceWithFee(t *testing.T) {
	cases := []struct {
		name  string
		net   uint64
		bps   uint64
		fee   uint64
		total uint64
	}{
		{name: "zero net", net: 0, bps: 250, fee: 0, total: 0},
		{name: "reference", net: 1000, bps: 250, fee: 25, total: 1025},
		{name: "floors", net: 39, bps: 250, fee: 0, total: 39},
		{name: "no fee", net: 1000, bps: 0, fee: 0, total: 1000},
		{name: "full rate", net: 7, bps: 10_000, fee: 7, total: 14},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := PriceWithFee(uint256.NewInt(tc.net), tc.bps)
			if err != nil {
				t.Fatalf("quote: %v", err)
			}
			if quote.Fee.Uint64() != tc.fee || quote.Total.Uint64() != tc.total {
				t.Fatalf("expected fee %d total %d, got fee %s total %s", tc.fee, tc.total, quote.Fee, quote.Total)
			}
		})
	}
}

func TestPriceWithFeeRejectsInvalidRate(t *testing.T) {
	if _, err := PriceWithFee(uint256.NewInt(1), 10_001); !errors.Is(err, ErrInvalidBps) {
		t.Fatalf("expected ErrInvalidBps, got %v", err)
	}
}

func TestPortionHandlesWideAmounts(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	got := Portion(max, 5_000)
	want := new(uint256.Int).Rsh(max, 1)
	if !got.Eq(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestChargeForKeepsTipFeeFree(t *testing.T) {
	charge, err := ChargeFor(uint256.NewInt(1000), uint256.NewInt(100), 250)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if charge.Fee.Uint64() != 25 {
		t.Fatalf("expected fee 25, got %s", charge.Fee)
	}
	if charge.Debit.Uint64() != 1125 {
		t.Fatalf("expected debit 1125, got %s", charge.Debit)
	}
	if charge.Payout.Uint64() != 1100 {
		t.Fatalf("expected payout 1100, got %s", charge.Payout)
	}

	free, err := ChargeFor(nil, nil, 250)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !free.IsZero() {
		t.Fatalf("expected zero charge")
	}
}

func TestChargeForOverflow(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	if _, err := ChargeFor(max, uint256.NewInt(1), 0); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}
