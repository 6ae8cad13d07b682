package orchestrator

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/errors"
	"musicchain/native/albums"
)

// AlbumParams are the editable fields of an album.
type AlbumParams struct {
	Title       string
	MetadataURI string
	SongIDs     []uint64
	NetPrice    *uint256.Int
	Purchasable bool
	Edition     albums.Edition
}

// RegisterAlbum bundles songs of artistID into an album and assigns them to it.
func (e *Engine) RegisterAlbum(caller ethcommon.Address, artistID uint64, params AlbumParams) (uint64, error) {
	var id uint64
	err := e.mutate("registerAlbum", func() error {
		if err := e.requireArtist(caller, artistID); err != nil {
			return err
		}
		if err := e.requireSongsOf(artistID, params.SongIDs); err != nil {
			return err
		}
		var err error
		id, err = e.stores.Albums.Register(e.address, params.Title, artistID, params.MetadataURI,
			params.SongIDs, params.NetPrice, params.Purchasable, params.Edition)
		if err != nil {
			return err
		}
		return e.stores.Songs.AssignToAlbumBatch(e.address, params.SongIDs, id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// requireSongsOf checks that every song exists and belongs to artistID.
func (e *Engine) requireSongsOf(artistID uint64, songIDs []uint64) error {
	for _, songID := range songIDs {
		song, err := e.stores.Songs.Get(songID)
		if err != nil {
			return err
		}
		if song.PrincipalArtistID != artistID {
			return errors.With(ErrSongNotFromArtist, "song", songID)
		}
	}
	return nil
}

// albumOfArtist loads albumID and checks that artistID is its unbanned principal.
func (e *Engine) albumOfArtist(caller ethcommon.Address, artistID, albumID uint64) (*albums.Album, error) {
	if err := e.requireArtist(caller, artistID); err != nil {
		return nil, err
	}
	album, err := e.stores.Albums.Get(albumID)
	if err != nil {
		return nil, err
	}
	if album.PrincipalArtistID != artistID {
		return nil, errors.With(ErrNotPrincipalArtist, "album", albumID)
	}
	return album, nil
}

// ChangeAlbumFullData replaces the editable fields of albumID. Songs dropped
// from the list are released from the album and new songs are assigned.
func (e *Engine) ChangeAlbumFullData(caller ethcommon.Address, artistID, albumID uint64, params AlbumParams) error {
	return e.mutate("changeAlbumFullData", func() error {
		album, err := e.albumOfArtist(caller, artistID, albumID)
		if err != nil {
			return err
		}
		if err := e.requireSongsOf(artistID, params.SongIDs); err != nil {
			return err
		}
		if err := e.stores.Albums.Change(e.address, albumID, params.Title, params.MetadataURI,
			params.SongIDs, params.NetPrice, params.Purchasable, params.Edition); err != nil {
			return err
		}
		kept := make(map[uint64]struct{}, len(params.SongIDs))
		for _, songID := range params.SongIDs {
			kept[songID] = struct{}{}
		}
		var dropped []uint64
		for _, songID := range album.SongIDs {
			if _, ok := kept[songID]; !ok {
				dropped = append(dropped, songID)
			}
		}
		if len(dropped) > 0 {
			if err := e.stores.Songs.ReleaseFromAlbum(e.address, dropped); err != nil {
				return err
			}
		}
		return e.stores.Songs.AssignToAlbumBatch(e.address, params.SongIDs, albumID)
	})
}

// ChangeAlbumPurchaseability opens or closes sales of albumID.
func (e *Engine) ChangeAlbumPurchaseability(caller ethcommon.Address, artistID, albumID uint64, purchasable bool) error {
	return e.mutate("changeAlbumPurchaseability", func() error {
		if _, err := e.albumOfArtist(caller, artistID, albumID); err != nil {
			return err
		}
		return e.stores.Albums.ChangePurchaseability(e.address, albumID, purchasable)
	})
}

// ChangeAlbumPrice sets the net price of albumID.
func (e *Engine) ChangeAlbumPrice(caller ethcommon.Address, artistID, albumID uint64, netPrice *uint256.Int) error {
	return e.mutate("changeAlbumPrice", func() error {
		if _, err := e.albumOfArtist(caller, artistID, albumID); err != nil {
			return err
		}
		return e.stores.Albums.ChangePrice(e.address, albumID, netPrice)
	})
}

// PurchaseAlbum buys albumID for userID and adds every song of the album to
// the user's library.
func (e *Engine) PurchaseAlbum(caller ethcommon.Address, userID, albumID uint64, tip *uint256.Int) error {
	return e.mutate("purchaseAlbum", func() error {
		if err := e.requireUser(caller, userID); err != nil {
			return err
		}
		album, err := e.stores.Albums.Purchase(e.address, albumID, userID)
		if err != nil {
			return err
		}
		if err := e.stores.Users.AddSongs(e.address, userID, album.SongIDs); err != nil {
			return err
		}
		charge, err := e.settle(userID, album.PrincipalArtistID, 0, album.NetPrice, tip)
		if err != nil {
			return err
		}
		e.emit(purchaseEvent(EventTypeAlbumPurchased, albumID, userID, charge))
		return nil
	})
}

// GiftAlbum hands albumID and its songs to recipientID without payment.
func (e *Engine) GiftAlbum(caller ethcommon.Address, artistID, albumID, recipientID uint64) error {
	return e.mutate("giftAlbum", func() error {
		if _, err := e.albumOfArtist(caller, artistID, albumID); err != nil {
			return err
		}
		if err := e.requireUsersExist(recipientID); err != nil {
			return err
		}
		album, err := e.stores.Albums.Gift(e.address, albumID, recipientID)
		if err != nil {
			return err
		}
		if err := e.stores.Users.AddSongs(e.address, recipientID, album.SongIDs); err != nil {
			return err
		}
		e.emit(giftEvent(EventTypeAlbumGifted, albumID, artistID, recipientID))
		return nil
	})
}
