package users

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// User is a listener or artist profile together with its marketplace
// balance and library.
type User struct {
	ID                   uint64
	Name                 string
	MetadataURI          string
	Address              ethcommon.Address
	Balance              *uint256.Int
	AccumulatedRoyalties *uint256.Int
	Purchased            []uint64
	Banned               bool
}

// Clone returns a deep copy of the user so callers can safely mutate the copy
// without affecting the stored instance.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Balance = cloneAmount(u.Balance)
	clone.AccumulatedRoyalties = cloneAmount(u.AccumulatedRoyalties)
	clone.Purchased = append([]uint64{}, u.Purchased...)
	return &clone
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

func (u *User) ensureDefaults() {
	if u.Balance == nil {
		u.Balance = new(uint256.Int)
	}
	if u.AccumulatedRoyalties == nil {
		u.AccumulatedRoyalties = new(uint256.Int)
	}
	if u.Purchased == nil {
		u.Purchased = []uint64{}
	}
}
