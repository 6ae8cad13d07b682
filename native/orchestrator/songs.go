package orchestrator

import (
	"log/slog"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/errors"
	"musicchain/native/songs"
	"musicchain/observability/logging"
)

// SongParams are the editable fields of a song.
type SongParams struct {
	Title             string
	FeaturedArtistIDs []uint64
	MediaURI          string
	MetadataURI       string
	Purchasable       bool
	NetPrice          *uint256.Int
}

// RegisterSong lists a song whose principal artist is artistID.
func (e *Engine) RegisterSong(caller ethcommon.Address, artistID uint64, params SongParams) (uint64, error) {
	var id uint64
	err := e.mutate("registerSong", func() error {
		if err := e.requireArtist(caller, artistID); err != nil {
			return err
		}
		if err := e.requireUsersExist(params.FeaturedArtistIDs...); err != nil {
			return err
		}
		var err error
		id, err = e.stores.Songs.Register(e.address, params.Title, artistID, params.FeaturedArtistIDs,
			params.MediaURI, params.MetadataURI, params.Purchasable, params.NetPrice)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.logger.Debug("song listed", slog.Uint64("songId", id), slog.Uint64("artistId", artistID),
		logging.MaskField("metadataUri", params.MetadataURI))
	return id, nil
}

// songOfArtist loads songID and checks that artistID is its unbanned principal.
func (e *Engine) songOfArtist(caller ethcommon.Address, artistID, songID uint64) (*songs.Song, error) {
	if err := e.requireArtist(caller, artistID); err != nil {
		return nil, err
	}
	song, err := e.stores.Songs.Get(songID)
	if err != nil {
		return nil, err
	}
	if song.PrincipalArtistID != artistID {
		return nil, errors.With(ErrNotPrincipalArtist, "song", songID)
	}
	return song, nil
}

// ChangeSongFullData replaces the editable fields of songID.
func (e *Engine) ChangeSongFullData(caller ethcommon.Address, artistID, songID uint64, params SongParams) error {
	return e.mutate("changeSongFullData", func() error {
		if _, err := e.songOfArtist(caller, artistID, songID); err != nil {
			return err
		}
		if err := e.requireUsersExist(params.FeaturedArtistIDs...); err != nil {
			return err
		}
		return e.stores.Songs.Change(e.address, songID, params.Title, params.FeaturedArtistIDs,
			params.MediaURI, params.MetadataURI, params.Purchasable, params.NetPrice)
	})
}

// ChangeSongPurchaseability opens or closes sales of songID.
func (e *Engine) ChangeSongPurchaseability(caller ethcommon.Address, artistID, songID uint64, purchasable bool) error {
	return e.mutate("changeSongPurchaseability", func() error {
		if _, err := e.songOfArtist(caller, artistID, songID); err != nil {
			return err
		}
		return e.stores.Songs.ChangePurchaseability(e.address, songID, purchasable)
	})
}

// ChangeSongPrice sets the net price of songID.
func (e *Engine) ChangeSongPrice(caller ethcommon.Address, artistID, songID uint64, netPrice *uint256.Int) error {
	return e.mutate("changeSongPrice", func() error {
		if _, err := e.songOfArtist(caller, artistID, songID); err != nil {
			return err
		}
		return e.stores.Songs.ChangePrice(e.address, songID, netPrice)
	})
}

// PurchaseSong buys songID for userID, paying the net price plus fee and an
// optional fee-free tip.
func (e *Engine) PurchaseSong(caller ethcommon.Address, userID, songID uint64, tip *uint256.Int) error {
	return e.mutate("purchaseSong", func() error {
		if err := e.requireUser(caller, userID); err != nil {
			return err
		}
		song, err := e.stores.Songs.Purchase(e.address, songID, userID)
		if err != nil {
			return err
		}
		if err := e.stores.Users.AddSong(e.address, userID, songID); err != nil {
			return err
		}
		charge, err := e.settle(userID, song.PrincipalArtistID, songID, song.NetPrice, tip)
		if err != nil {
			return err
		}
		e.emit(purchaseEvent(EventTypeSongPurchased, songID, userID, charge))
		return nil
	})
}

// GiftSong hands songID to recipientID without payment. Only the principal
// artist may gift.
func (e *Engine) GiftSong(caller ethcommon.Address, artistID, songID, recipientID uint64) error {
	return e.mutate("giftSong", func() error {
		if _, err := e.songOfArtist(caller, artistID, songID); err != nil {
			return err
		}
		if err := e.requireUsersExist(recipientID); err != nil {
			return err
		}
		if _, err := e.stores.Songs.Gift(e.address, songID, recipientID); err != nil {
			return err
		}
		if err := e.stores.Users.AddSong(e.address, recipientID, songID); err != nil {
			return err
		}
		e.emit(giftEvent(EventTypeSongGifted, songID, artistID, recipientID))
		return nil
	})
}
