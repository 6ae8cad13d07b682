package orchestrator

import (
	"github.com/holiman/uint256"

	"musicchain/native/fees"
	"musicchain/native/splits"
)

// settle runs the payment protocol of a purchase: the buyer pays net + fee +
// tip, the artist side receives net + tip and the fee joins the pool.
// songID selects a song split; it is 0 for albums.
func (e *Engine) settle(buyerID, artistID, songID uint64, net, tip *uint256.Int) (fees.Charge, error) {
	bps, err := e.feeBps()
	if err != nil {
		return fees.Charge{}, err
	}
	charge, err := fees.ChargeFor(net, tip, bps)
	if err != nil {
		return fees.Charge{}, err
	}
	if charge.IsZero() {
		return charge, nil
	}
	if err := e.stores.Users.DeductBalance(e.address, buyerID, charge.Debit); err != nil {
		return fees.Charge{}, err
	}
	if err := e.distribute(artistID, songID, charge.Payout); err != nil {
		return fees.Charge{}, err
	}
	if err := e.addFees(charge.Fee); err != nil {
		return fees.Charge{}, err
	}
	return charge, nil
}

// distribute pays amount out through the song split, else the principal
// artist's user split, else entirely to the principal. Whatever flooring
// leaves over goes to the principal.
func (e *Engine) distribute(principalID, songID uint64, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	payouts, err := e.payouts(principalID, songID, amount)
	if err != nil {
		return err
	}
	remainder := new(uint256.Int).Set(amount)
	for _, payout := range payouts {
		recipient := payout.RecipientID
		royalty := payout.RecipientKind == splits.RecipientArtist
		if payout.Principal() || recipient == principalID {
			recipient = principalID
			royalty = true
		}
		if err := e.creditArtist(recipient, payout.Amount, royalty); err != nil {
			return err
		}
		remainder.Sub(remainder, payout.Amount)
	}
	return e.creditArtist(principalID, remainder, true)
}

func (e *Engine) payouts(principalID, songID uint64, amount *uint256.Int) ([]splits.Payout, error) {
	if songID != 0 {
		ok, err := e.stores.Splits.Exists(splits.EntitySong, songID)
		if err != nil {
			return nil, err
		}
		if ok {
			return e.stores.Splits.CalculateSplit(splits.EntitySong, songID, amount)
		}
	}
	return e.stores.Splits.CalculateSplit(splits.EntityUser, principalID, amount)
}

func (e *Engine) addFees(amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	pool, err := e.feePool()
	if err != nil {
		return err
	}
	if _, overflow := pool.AddOverflow(pool, amount); overflow {
		return fees.ErrAmountOverflow
	}
	return e.putFeePool(pool)
}

func (e *Engine) takeFees(amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}
	pool, err := e.feePool()
	if err != nil {
		return nil, err
	}
	if pool.Lt(amount) {
		return nil, ErrInsufficientFees
	}
	pool.Sub(pool, amount)
	if err := e.putFeePool(pool); err != nil {
		return nil, err
	}
	return pool, nil
}
