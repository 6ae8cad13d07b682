package common

import (
	ethcommon "github.com/ethereum/go-ethereum/common"

	"musicchain/core/errors"
	"musicchain/core/state"
)

var (
	// ErrNotCoordinator is returned when a store mutation is attempted by an
	// address other than the store's coordinator.
	ErrNotCoordinator = errors.NewCode(errors.KindAuthorization, "caller is not the store coordinator")
	// ErrZeroCoordinator rejects handing a store to the zero address.
	ErrZeroCoordinator = errors.NewCode(errors.KindValidation, "coordinator address must not be zero")
)

// Access records the single address allowed to mutate a store. The record is
// kept in state so a coordinator handover commits or rolls back together with
// the rest of the call.
type Access struct {
	state *state.Manager
	key   []byte
}

// NewAccess binds the coordinator record of namespace. When no coordinator is
// stored yet, initial is persisted.
func NewAccess(st *state.Manager, namespace string, initial ethcommon.Address) (*Access, error) {
	a := &Access{state: st, key: state.Key(namespace, "coordinator")}
	current, err := a.Coordinator()
	if err != nil {
		return nil, err
	}
	if current != (ethcommon.Address{}) {
		return a, nil
	}
	if initial == (ethcommon.Address{}) {
		return nil, ErrZeroCoordinator
	}
	if err := st.Put(a.key, initial.Bytes()); err != nil {
		return nil, err
	}
	return a, nil
}

// Coordinator returns the address currently authorized to mutate the store.
func (a *Access) Coordinator() (ethcommon.Address, error) {
	raw, ok, err := a.state.Get(a.key)
	if err != nil || !ok {
		return ethcommon.Address{}, err
	}
	return ethcommon.BytesToAddress(raw), nil
}

// Require fails unless caller is the coordinator.
func (a *Access) Require(caller ethcommon.Address) error {
	current, err := a.Coordinator()
	if err != nil {
		return err
	}
	if caller != current {
		return ErrNotCoordinator
	}
	return nil
}

// Transfer hands the store to next. Only the current coordinator may do so.
func (a *Access) Transfer(caller, next ethcommon.Address) error {
	if err := a.Require(caller); err != nil {
		return err
	}
	if next == (ethcommon.Address{}) {
		return ErrZeroCoordinator
	}
	return a.state.Put(a.key, next.Bytes())
}
