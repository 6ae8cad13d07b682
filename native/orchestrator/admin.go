package orchestrator

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/native/splits"
)

// SetUserBannedStatus bans or unbans userID.
func (e *Engine) SetUserBannedStatus(caller ethcommon.Address, userID uint64, banned bool) error {
	return e.mutate("setUserBannedStatus", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if err := e.requireBound(); err != nil {
			return err
		}
		return e.stores.Users.SetBannedStatus(e.address, userID, banned)
	})
}

// SetSongBannedStatus bans or unbans songID.
func (e *Engine) SetSongBannedStatus(caller ethcommon.Address, songID uint64, banned bool) error {
	return e.mutate("setSongBannedStatus", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if err := e.requireBound(); err != nil {
			return err
		}
		return e.stores.Songs.SetBannedStatus(e.address, songID, banned)
	})
}

// SetAlbumBannedStatus bans or unbans albumID.
func (e *Engine) SetAlbumBannedStatus(caller ethcommon.Address, albumID uint64, banned bool) error {
	return e.mutate("setAlbumBannedStatus", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if err := e.requireBound(); err != nil {
			return err
		}
		return e.stores.Albums.SetBannedStatus(e.address, albumID, banned)
	})
}

// RefundSong revokes userID's copy of songID and moves amount back from the
// principal artist to the user.
func (e *Engine) RefundSong(caller ethcommon.Address, songID, userID uint64, amount *uint256.Int) error {
	return e.mutate("refundSong", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if err := e.requireBound(); err != nil {
			return err
		}
		song, err := e.stores.Songs.Get(songID)
		if err != nil {
			return err
		}
		if err := e.stores.Songs.Refund(e.address, songID, userID); err != nil {
			return err
		}
		if err := e.stores.Users.DeleteSong(e.address, userID, songID); err != nil {
			return err
		}
		if err := e.reimburse(song.PrincipalArtistID, userID, amount); err != nil {
			return err
		}
		e.emit(refundEvent("song", songID, userID, amount))
		return nil
	})
}

// RefundAlbum revokes userID's copy of albumID, removes its songs from the
// user's library and moves amount back from the principal artist.
func (e *Engine) RefundAlbum(caller ethcommon.Address, albumID, userID uint64, amount *uint256.Int) error {
	return e.mutate("refundAlbum", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if err := e.requireBound(); err != nil {
			return err
		}
		album, err := e.stores.Albums.Refund(e.address, albumID, userID)
		if err != nil {
			return err
		}
		if err := e.stores.Users.DeleteSongs(e.address, userID, album.SongIDs); err != nil {
			return err
		}
		if err := e.reimburse(album.PrincipalArtistID, userID, amount); err != nil {
			return err
		}
		e.emit(refundEvent("album", albumID, userID, amount))
		return nil
	})
}

// reimburse moves amount from the artist to the user, reducing the artist's
// royalties by up to the same amount.
func (e *Engine) reimburse(artistID, userID uint64, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if err := e.stores.Users.DeductBalance(e.address, artistID, amount); err != nil {
		return err
	}
	if err := e.stores.Users.AddBalance(e.address, userID, amount); err != nil {
		return err
	}
	royalties, err := e.stores.Users.AccumulatedRoyalties(artistID)
	if err != nil {
		return err
	}
	if royalties.Gt(amount) {
		royalties = amount
	}
	if royalties.IsZero() {
		return nil
	}
	return e.stores.Users.DeductAccumulatedRoyalties(e.address, artistID, royalties)
}

// SetSongSplit registers or replaces the revenue split of songID.
func (e *Engine) SetSongSplit(caller ethcommon.Address, artistID, songID uint64, shares []splits.Share) error {
	return e.mutate("setSongSplit", func() error {
		if _, err := e.songOfArtist(caller, artistID, songID); err != nil {
			return err
		}
		return e.writeSplit(splits.EntitySong, songID, shares)
	})
}

// SetUserSplit registers or replaces the revenue split applied to userID's
// releases that carry no song split of their own.
func (e *Engine) SetUserSplit(caller ethcommon.Address, userID uint64, shares []splits.Share) error {
	return e.mutate("setUserSplit", func() error {
		if err := e.requireArtist(caller, userID); err != nil {
			return err
		}
		return e.writeSplit(splits.EntityUser, userID, shares)
	})
}

func (e *Engine) writeSplit(kind splits.EntityKind, id uint64, shares []splits.Share) error {
	for _, share := range shares {
		if err := e.requireUsersExist(share.RecipientID); err != nil {
			return err
		}
	}
	exists, err := e.stores.Splits.Exists(kind, id)
	if err != nil {
		return err
	}
	if exists {
		return e.stores.Splits.Change(e.address, kind, id, shares)
	}
	return e.stores.Splits.Register(e.address, kind, id, shares)
}
