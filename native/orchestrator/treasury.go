package orchestrator

import (
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/events"
	"musicchain/native/fees"
)

// Proposal is a pending stablecoin rotation.
type Proposal struct {
	Address      ethcommon.Address
	ExecuteAfter uint64
}

func (e *Engine) loadProposal() (*Proposal, error) {
	var p Proposal
	ok, err := e.state.GetRLP(proposalKey(), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// ChangePercentageFee sets the platform fee in basis points.
func (e *Engine) ChangePercentageFee(caller ethcommon.Address, bps uint64) error {
	return e.mutate("changePercentageFee", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if err := fees.ValidateBps(bps); err != nil {
			return err
		}
		previous, err := e.feeBps()
		if err != nil {
			return err
		}
		if err := e.putFeeBps(bps); err != nil {
			return err
		}
		e.emit(feeChangedEvent(previous, bps))
		return nil
	})
}

// WithdrawCollectedFees pays amount out of the fee pool to recipient.
func (e *Engine) WithdrawCollectedFees(caller, recipient ethcommon.Address, amount *uint256.Int) error {
	return e.mutate("withdrawCollectedFees", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if recipient == (ethcommon.Address{}) {
			return ErrZeroAddress
		}
		remaining, err := e.takeFees(amount)
		if err != nil {
			return err
		}
		token, err := e.token()
		if err != nil {
			return err
		}
		if err := token.Transfer(e.address, recipient, amount); err != nil {
			return err
		}
		e.observeCustody(CustodyFees, amount)
		e.emit(feesMovedEvent(EventTypeFeesWithdrawn, events.FormatAddress(recipient), amount, remaining))
		return nil
	})
}

// GiveCollectedFeesToArtist moves amount from the fee pool to the balance and
// royalties of artistID.
func (e *Engine) GiveCollectedFeesToArtist(caller ethcommon.Address, artistID uint64, amount *uint256.Int) error {
	return e.mutate("giveCollectedFeesToArtist", func() error {
		return e.giveFees(caller, artistID, amount, true)
	})
}

// GiveCollectedFeesToUser moves amount from the fee pool to userID's balance.
func (e *Engine) GiveCollectedFeesToUser(caller ethcommon.Address, userID uint64, amount *uint256.Int) error {
	return e.mutate("giveCollectedFeesToUser", func() error {
		return e.giveFees(caller, userID, amount, false)
	})
}

func (e *Engine) giveFees(caller ethcommon.Address, userID uint64, amount *uint256.Int, royalty bool) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireBound(); err != nil {
		return err
	}
	remaining, err := e.takeFees(amount)
	if err != nil {
		return err
	}
	if err := e.creditArtist(userID, amount, royalty); err != nil {
		return err
	}
	e.emit(feesMovedEvent(EventTypeFeesGiven, "user:"+events.FormatID(userID), amount, remaining))
	return nil
}

// ProposeStablecoinAddressChange schedules a rotation to next once the change
// delay has elapsed. A pending proposal is replaced.
func (e *Engine) ProposeStablecoinAddressChange(caller, next ethcommon.Address) error {
	return e.mutate("proposeStablecoinAddressChange", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if next == (ethcommon.Address{}) {
			return ErrZeroAddress
		}
		if err := e.resolvable(next); err != nil {
			return err
		}
		p := Proposal{Address: next, ExecuteAfter: uint64(e.nowFn()) + uint64(e.delay/time.Second)}
		if err := e.state.PutRLP(proposalKey(), &p); err != nil {
			return err
		}
		e.emit(stablecoinEvent(EventTypeStablecoinProposed, next, p.ExecuteAfter))
		return nil
	})
}

func (e *Engine) resolvable(addr ethcommon.Address) error {
	if e.tokens == nil {
		return nil
	}
	if _, err := e.tokens.ResolveStablecoin(addr); err != nil {
		return ErrUnknownStablecoin
	}
	return nil
}

// CancelStablecoinAddressChange drops the pending proposal.
func (e *Engine) CancelStablecoinAddressChange(caller ethcommon.Address) error {
	return e.mutate("cancelStablecoinAddressChange", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		p, err := e.loadProposal()
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNoPendingProposal
		}
		if err := e.state.Delete(proposalKey()); err != nil {
			return err
		}
		e.emit(stablecoinEvent(EventTypeStablecoinCanceled, p.Address, 0))
		return nil
	})
}

// ExecuteStablecoinAddressChange promotes the pending proposal once its
// timelock has elapsed.
func (e *Engine) ExecuteStablecoinAddressChange(caller ethcommon.Address) error {
	return e.mutate("executeStablecoinAddressChange", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		p, err := e.loadProposal()
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNoPendingProposal
		}
		if now := e.nowFn(); now < 0 || uint64(now) < p.ExecuteAfter {
			return ErrTimelockActive
		}
		if err := e.resolvable(p.Address); err != nil {
			return err
		}
		if err := e.state.Put(stablecoinKey(), p.Address.Bytes()); err != nil {
			return err
		}
		if err := e.state.Delete(proposalKey()); err != nil {
			return err
		}
		e.emit(stablecoinEvent(EventTypeStablecoinChanged, p.Address, 0))
		return nil
	})
}

// MigrateOrchestrator hands every database to next, pays the fee pool to
// feeRecipient and the remaining custody balance to next. It can run once;
// afterwards every mutating entry point fails with ErrMigrated.
func (e *Engine) MigrateOrchestrator(caller, next, feeRecipient ethcommon.Address) error {
	return e.mutate("migrateOrchestrator", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if err := e.requireBound(); err != nil {
			return err
		}
		if next == (ethcommon.Address{}) || feeRecipient == (ethcommon.Address{}) {
			return ErrZeroAddress
		}
		for _, store := range []interface {
			TransferCoordinator(caller, next ethcommon.Address) error
		}{e.stores.Users, e.stores.Songs, e.stores.Albums, e.stores.Splits} {
			if err := store.TransferCoordinator(e.address, next); err != nil {
				return err
			}
		}
		token, err := e.token()
		if err != nil {
			return err
		}
		collected, err := e.feePool()
		if err != nil {
			return err
		}
		if !collected.IsZero() {
			if err := token.Transfer(e.address, feeRecipient, collected); err != nil {
				return err
			}
			if err := e.putFeePool(new(uint256.Int)); err != nil {
				return err
			}
		}
		custody, err := token.BalanceOf(e.address)
		if err != nil {
			return err
		}
		if !custody.IsZero() {
			if err := token.Transfer(e.address, next, custody); err != nil {
				return err
			}
		}
		m := Migration{NewOrchestrator: next, FeeRecipient: feeRecipient, At: uint64(e.nowFn())}
		if err := e.state.PutRLP(migrationKey(), &m); err != nil {
			return err
		}
		e.observeCustody(CustodyFees, collected)
		e.observeCustody(CustodyMigration, custody)
		e.emit(migratedEvent(m, collected, custody))
		return nil
	})
}
