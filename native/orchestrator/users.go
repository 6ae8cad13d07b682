package orchestrator

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Register creates a user owned by caller and returns its id.
func (e *Engine) Register(caller ethcommon.Address, name, metadataURI string) (uint64, error) {
	var id uint64
	err := e.mutate("register", func() error {
		if err := e.requireBound(); err != nil {
			return err
		}
		var err error
		id, err = e.stores.Users.Register(e.address, name, metadataURI, caller)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ChangeBasicData updates the profile of userID.
func (e *Engine) ChangeBasicData(caller ethcommon.Address, userID uint64, name, metadataURI string) error {
	return e.mutate("changeBasicData", func() error {
		if err := e.requireUser(caller, userID); err != nil {
			return err
		}
		return e.stores.Users.ChangeBasicData(e.address, userID, name, metadataURI)
	})
}

// ChangeAddress moves userID to next.
func (e *Engine) ChangeAddress(caller ethcommon.Address, userID uint64, next ethcommon.Address) error {
	return e.mutate("changeAddress", func() error {
		if err := e.requireUser(caller, userID); err != nil {
			return err
		}
		return e.stores.Users.ChangeAddress(e.address, userID, next)
	})
}

// DepositFunds pulls amount of stablecoin from caller into custody and credits
// userID. Caller must have approved the orchestrator beforehand.
func (e *Engine) DepositFunds(caller ethcommon.Address, userID uint64, amount *uint256.Int) error {
	return e.mutate("depositFunds", func() error {
		if err := e.requireUser(caller, userID); err != nil {
			return err
		}
		return e.deposit(caller, userID, userID, amount)
	})
}

// DepositFundsToAnotherUser pulls amount from caller, the owner of userID, and
// credits recipientID.
func (e *Engine) DepositFundsToAnotherUser(caller ethcommon.Address, userID, recipientID uint64, amount *uint256.Int) error {
	return e.mutate("depositFundsToAnotherUser", func() error {
		if err := e.requireUser(caller, userID); err != nil {
			return err
		}
		if err := e.requireUsersExist(recipientID); err != nil {
			return err
		}
		return e.deposit(caller, userID, recipientID, amount)
	})
}

func (e *Engine) deposit(from ethcommon.Address, userID, recipientID uint64, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if err := e.stores.Users.AddBalance(e.address, recipientID, amount); err != nil {
		return err
	}
	token, err := e.token()
	if err != nil {
		return err
	}
	if err := token.TransferFrom(e.address, from, e.address, amount); err != nil {
		return err
	}
	e.observeCustody(CustodyDeposit, amount)
	e.emit(fundsEvent(EventTypeFundsDeposited, userID, recipientID, amount))
	return nil
}

// MakeDonation moves amount from userID's balance to artistID, counting it
// as royalties of the artist.
func (e *Engine) MakeDonation(caller ethcommon.Address, userID, artistID uint64, amount *uint256.Int) error {
	return e.mutate("makeDonation", func() error {
		if err := e.requireUser(caller, userID); err != nil {
			return err
		}
		if amount == nil || amount.IsZero() {
			return ErrZeroAmount
		}
		if err := e.stores.Users.DeductBalance(e.address, userID, amount); err != nil {
			return err
		}
		if err := e.creditArtist(artistID, amount, true); err != nil {
			return err
		}
		e.emit(fundsEvent(EventTypeDonation, userID, artistID, amount))
		return nil
	})
}

// WithdrawFunds debits userID and pays amount of stablecoin out to caller.
func (e *Engine) WithdrawFunds(caller ethcommon.Address, userID uint64, amount *uint256.Int) error {
	return e.mutate("withdrawFunds", func() error {
		if err := e.requireUser(caller, userID); err != nil {
			return err
		}
		if amount == nil || amount.IsZero() {
			return ErrZeroAmount
		}
		if err := e.stores.Users.DeductBalance(e.address, userID, amount); err != nil {
			return err
		}
		token, err := e.token()
		if err != nil {
			return err
		}
		if err := token.Transfer(e.address, caller, amount); err != nil {
			return err
		}
		e.observeCustody(CustodyWithdraw, amount)
		e.emit(fundsEvent(EventTypeFundsWithdrawn, userID, userID, amount))
		return nil
	})
}

// creditArtist adds amount to the balance of id and, when royalty is set, to
// its accumulated royalties.
func (e *Engine) creditArtist(id uint64, amount *uint256.Int, royalty bool) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if err := e.stores.Users.AddBalance(e.address, id, amount); err != nil {
		return err
	}
	if !royalty {
		return nil
	}
	return e.stores.Users.AddAccumulatedRoyalties(e.address, id, amount)
}
