package albums

import "github.com/holiman/uint256"

// Album bundles songs of one principal artist into a single purchasable
// item. Special editions carry a finite supply.
type Album struct {
	ID                 uint64
	Title              string
	PrincipalArtistID  uint64
	MetadataURI        string
	SongIDs            []uint64
	NetPrice           *uint256.Int
	Purchasable        bool
	SpecialEdition     bool
	SpecialEditionName string
	MaxSupply          uint64
	PurchaseCount      uint64
	Banned             bool
}

// Clone returns a deep copy of the album.
func (a *Album) Clone() *Album {
	if a == nil {
		return nil
	}
	clone := *a
	clone.SongIDs = append([]uint64{}, a.SongIDs...)
	if a.NetPrice != nil {
		clone.NetPrice = new(uint256.Int).Set(a.NetPrice)
	} else {
		clone.NetPrice = new(uint256.Int)
	}
	return &clone
}

// SoldOut reports whether a special edition has reached its supply cap.
func (a *Album) SoldOut() bool {
	return a.SpecialEdition && a.PurchaseCount >= a.MaxSupply
}

func (a *Album) ensureDefaults() {
	if a.NetPrice == nil {
		a.NetPrice = new(uint256.Int)
	}
	if a.SongIDs == nil {
		a.SongIDs = []uint64{}
	}
}

// Edition describes the special-edition parameters of an album.
type Edition struct {
	Special   bool
	Name      string
	MaxSupply uint64
}
