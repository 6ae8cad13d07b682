package fees

import (
	"github.com/holiman/uint256"

	"musicchain/core/errors"
)

// BpsDenominator is the basis-point scale: 10,000 bps is 100%.
const BpsDenominator uint64 = 10_000

var (
	ErrInvalidBps     = errors.NewCode(errors.KindValidation, "fees: basis points must not exceed 10000")
	ErrAmountOverflow = errors.NewCode(errors.KindValidation, "fees: amount overflows 256 bits")
)

var denominator = uint256.NewInt(BpsDenominator)

// ValidateBps rejects rates above 100%.
func ValidateBps(bps uint64) error {
	if bps > BpsDenominator {
		return ErrInvalidBps
	}
	return nil
}

// Portion returns floor(amount × bps / 10000). A nil amount counts as zero.
func Portion(amount *uint256.Int, bps uint64) *uint256.Int {
	if amount == nil || amount.IsZero() || bps == 0 {
		return new(uint256.Int)
	}
	// amount × bps may exceed 256 bits; MulDivOverflow keeps the 512-bit
	// intermediate and the quotient always fits because bps ≤ 10000.
	out, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(bps), denominator)
	return out
}

// Quote captures the buyer-facing price of a net amount.
type Quote struct {
	Net   *uint256.Int
	Fee   *uint256.Int
	Total *uint256.Int
}

// PriceWithFee computes fee = floor(net × bps / 10000) and total = net + fee.
// A zero net price yields a zero quote.
func PriceWithFee(net *uint256.Int, bps uint64) (Quote, error) {
	if err := ValidateBps(bps); err != nil {
		return Quote{}, err
	}
	quote := Quote{Net: new(uint256.Int), Fee: new(uint256.Int), Total: new(uint256.Int)}
	if net == nil || net.IsZero() {
		return quote, nil
	}
	quote.Net.Set(net)
	quote.Fee = Portion(net, bps)
	if _, overflow := quote.Total.AddOverflow(net, quote.Fee); overflow {
		return Quote{}, ErrAmountOverflow
	}
	return quote, nil
}

// Charge is the full debit of a purchase: the quote plus a fee-free tip.
type Charge struct {
	Quote
	Tip *uint256.Int
	// Debit is Total + Tip, taken from the buyer.
	Debit *uint256.Int
	// Payout is Net + Tip, credited to the artist side.
	Payout *uint256.Int
}

// ChargeFor builds the charge for a purchase of net with an optional tip.
func ChargeFor(net, tip *uint256.Int, bps uint64) (Charge, error) {
	quote, err := PriceWithFee(net, bps)
	if err != nil {
		return Charge{}, err
	}
	charge := Charge{Quote: quote, Tip: new(uint256.Int), Debit: new(uint256.Int), Payout: new(uint256.Int)}
	if tip != nil {
		charge.Tip.Set(tip)
	}
	if _, overflow := charge.Debit.AddOverflow(quote.Total, charge.Tip); overflow {
		return Charge{}, ErrAmountOverflow
	}
	if _, overflow := charge.Payout.AddOverflow(quote.Net, charge.Tip); overflow {
		return Charge{}, ErrAmountOverflow
	}
	return charge, nil
}

// IsZero reports whether the charge moves no funds at all.
func (c Charge) IsZero() bool { return c.Debit == nil || c.Debit.IsZero() }
