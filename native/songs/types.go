package songs

import "github.com/holiman/uint256"

// Song is a single track listed on the marketplace. NetPrice is what the
// principal artist receives; the platform fee is added on top at purchase.
type Song struct {
	ID                uint64
	Title             string
	PrincipalArtistID uint64
	FeaturedArtistIDs []uint64
	MediaURI          string
	MetadataURI       string
	Purchasable       bool
	NetPrice          *uint256.Int
	PurchaseCount     uint64
	AlbumID           uint64
	Banned            bool
}

// Clone returns a deep copy of the song.
func (s *Song) Clone() *Song {
	if s == nil {
		return nil
	}
	clone := *s
	clone.FeaturedArtistIDs = append([]uint64{}, s.FeaturedArtistIDs...)
	if s.NetPrice != nil {
		clone.NetPrice = new(uint256.Int).Set(s.NetPrice)
	} else {
		clone.NetPrice = new(uint256.Int)
	}
	return &clone
}

// Assigned reports whether the song belongs to an album.
func (s *Song) Assigned() bool { return s.AlbumID != 0 }

func (s *Song) ensureDefaults() {
	if s.NetPrice == nil {
		s.NetPrice = new(uint256.Int)
	}
	if s.FeaturedArtistIDs == nil {
		s.FeaturedArtistIDs = []uint64{}
	}
}
