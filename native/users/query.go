package users

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Get returns a copy of the user record.
func (s *Store) Get(id uint64) (*User, error) {
	u, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

// Exists reports whether id refers to a registered user.
func (s *Store) Exists(id uint64) (bool, error) { return s.ids.Exists(id) }

// Count returns the number of registered users.
func (s *Store) Count() (uint64, error) { return s.ids.Current() }

// IDByAddress resolves addr to a user id, or 0 when no user owns it.
func (s *Store) IDByAddress(addr ethcommon.Address) (uint64, error) {
	return s.lookupAddress(addr)
}

// AddressOf returns the address on file for id.
func (s *Store) AddressOf(id uint64) (ethcommon.Address, error) {
	u, err := s.load(id)
	if err != nil {
		return ethcommon.Address{}, err
	}
	return u.Address, nil
}

// Balance returns the user's spendable balance.
func (s *Store) Balance(id uint64) (*uint256.Int, error) {
	u, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return cloneAmount(u.Balance), nil
}

// AccumulatedRoyalties returns the user's royalty counter.
func (s *Store) AccumulatedRoyalties(id uint64) (*uint256.Int, error) {
	u, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return cloneAmount(u.AccumulatedRoyalties), nil
}

// Purchased returns the user's library in order.
func (s *Store) Purchased(id uint64) ([]uint64, error) {
	u, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return append([]uint64{}, u.Purchased...), nil
}

// IsBanned reports the ban flag of id.
func (s *Store) IsBanned(id uint64) (bool, error) {
	u, err := s.load(id)
	if err != nil {
		return false, err
	}
	return u.Banned, nil
}
