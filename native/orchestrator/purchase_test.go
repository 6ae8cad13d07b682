package orchestrator

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"musicchain/native/albums"
	"musicchain/native/songs"
	"musicchain/native/splits"
	"musicchain/native/stablecoin"
	"musicchain/native/users"
)

func TestPurchaseSongScenario(t *testing.T) {
	f := newFixture(t, 250)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	require.EqualValues(t, 1, listener)
	require.EqualValues(t, 2, artist)

	songID := f.release(artistAddr, artist, 1000)
	f.fund(listenerAddr, listener, 1025)
	f.rec.Reset()

	require.NoError(t, f.engine.PurchaseSong(listenerAddr, listener, songID, nil))

	require.Zero(t, f.balance(listener))
	require.EqualValues(t, 1000, f.balance(artist))
	require.EqualValues(t, 1000, f.user(artist).AccumulatedRoyalties.Uint64())
	require.EqualValues(t, 25, f.pool())
	require.Equal(t, []uint64{songID}, f.user(listener).Purchased)

	song, err := f.engine.GetSong(songID)
	require.NoError(t, err)
	require.EqualValues(t, 1, song.PurchaseCount)
	owned, err := f.engine.OwnsSong(songID, listener)
	require.NoError(t, err)
	require.True(t, owned)

	// Custody holds every user balance plus the fee pool.
	require.EqualValues(t, 1025, f.tokenBalance(orchestratorAddr))

	purchased := f.rec.OfType(EventTypeSongPurchased)
	require.Len(t, purchased, 1)
	require.Equal(t, "25", purchased[0].Attributes["fee"])
	require.Len(t, f.rec.OfType(songs.EventTypePurchased), 1)
	require.EqualValues(t, 25, f.metrics.pool)
}

func TestPurchaseSongWithTip(t *testing.T) {
	f := newFixture(t, 250)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID := f.release(artistAddr, artist, 1000)
	f.fund(listenerAddr, listener, 2000)

	require.NoError(t, f.engine.PurchaseSong(listenerAddr, listener, songID, uint256.NewInt(100)))
	require.EqualValues(t, 875, f.balance(listener))
	require.EqualValues(t, 1100, f.balance(artist))
	require.EqualValues(t, 25, f.pool())
}

func TestPurchaseSongInsufficientBalanceLeavesNoTrace(t *testing.T) {
	f := newFixture(t, 250)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID := f.release(artistAddr, artist, 1000)
	f.fund(listenerAddr, listener, 1024)
	f.rec.Reset()

	err := f.engine.PurchaseSong(listenerAddr, listener, songID, nil)
	require.True(t, errors.Is(err, users.ErrInsufficientBalance), "got %v", err)

	require.EqualValues(t, 1024, f.balance(listener))
	require.Zero(t, f.balance(artist))
	require.Zero(t, f.pool())
	require.Empty(t, f.user(listener).Purchased)
	song, err := f.engine.GetSong(songID)
	require.NoError(t, err)
	require.Zero(t, song.PurchaseCount)
	owned, err := f.engine.OwnsSong(songID, listener)
	require.NoError(t, err)
	require.False(t, owned)
	require.Empty(t, f.rec.Events())
	require.Equal(t, 1, f.metrics.failed["purchaseSong"])
}

func TestPurchaseSongTwiceFails(t *testing.T) {
	f := newFixture(t, 0)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID := f.release(artistAddr, artist, 10)
	f.fund(listenerAddr, listener, 100)

	require.NoError(t, f.engine.PurchaseSong(listenerAddr, listener, songID, nil))
	err := f.engine.PurchaseSong(listenerAddr, listener, songID, nil)
	require.True(t, errors.Is(err, songs.ErrAlreadyOwned))
	require.EqualValues(t, 90, f.balance(listener))
	song, err := f.engine.GetSong(songID)
	require.NoError(t, err)
	require.EqualValues(t, 1, song.PurchaseCount)
}

func TestPurchaseUnassignedSongFails(t *testing.T) {
	f := newFixture(t, 0)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID, err := f.engine.RegisterSong(artistAddr, artist, SongParams{Title: "Loose", Purchasable: true})
	require.NoError(t, err)

	err = f.engine.PurchaseSong(listenerAddr, listener, songID, nil)
	require.True(t, errors.Is(err, songs.ErrNotAssignedToAlbum))
}

func TestFreeSongMovesNoFunds(t *testing.T) {
	f := newFixture(t, 250)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID := f.release(artistAddr, artist, 0)

	require.NoError(t, f.engine.PurchaseSong(listenerAddr, listener, songID, nil))
	require.Zero(t, f.balance(artist))
	require.Zero(t, f.pool())
	require.Equal(t, []uint64{songID}, f.user(listener).Purchased)
}

func TestPurchaseAlbumIsAtomic(t *testing.T) {
	f := newFixture(t, 250)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	var songIDs []uint64
	for i := 0; i < 3; i++ {
		id, err := f.engine.RegisterSong(artistAddr, artist, SongParams{Title: "Track"})
		require.NoError(t, err)
		songIDs = append(songIDs, id)
	}
	albumID, err := f.engine.RegisterAlbum(artistAddr, artist, AlbumParams{
		Title:       "LP",
		SongIDs:     songIDs,
		NetPrice:    uint256.NewInt(300),
		Purchasable: true,
	})
	require.NoError(t, err)
	for _, id := range songIDs {
		song, err := f.engine.GetSong(id)
		require.NoError(t, err)
		require.Equal(t, albumID, song.AlbumID)
	}

	f.fund(listenerAddr, listener, 306)
	err = f.engine.PurchaseAlbum(listenerAddr, listener, albumID, nil)
	require.True(t, errors.Is(err, users.ErrInsufficientBalance))
	require.Empty(t, f.user(listener).Purchased)
	require.EqualValues(t, 306, f.balance(listener))
	album, err := f.engine.GetAlbum(albumID)
	require.NoError(t, err)
	require.Zero(t, album.PurchaseCount)

	f.fund(listenerAddr, listener, 1)
	require.NoError(t, f.engine.PurchaseAlbum(listenerAddr, listener, albumID, nil))
	require.Equal(t, songIDs, f.user(listener).Purchased)
	require.Zero(t, f.balance(listener))
	require.EqualValues(t, 300, f.balance(artist))
	require.EqualValues(t, 7, f.pool())
}

func TestSpecialEditionSellsOut(t *testing.T) {
	f := newFixture(t, 0)
	artist := f.register(artistAddr, "artist")
	listener := f.register(listenerAddr, "listener")
	collab := f.register(collabAddr, "collab")
	songID, err := f.engine.RegisterSong(artistAddr, artist, SongParams{Title: "Track"})
	require.NoError(t, err)
	albumID, err := f.engine.RegisterAlbum(artistAddr, artist, AlbumParams{
		Title:       "Box",
		SongIDs:     []uint64{songID},
		Purchasable: true,
		Edition:     albums.Edition{Special: true, Name: "Gold", MaxSupply: 1},
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.PurchaseAlbum(listenerAddr, listener, albumID, nil))
	err = f.engine.PurchaseAlbum(collabAddr, collab, albumID, nil)
	require.True(t, errors.Is(err, albums.ErrMaxSupplyReached))
	require.Empty(t, f.user(collab).Purchased)
}

func TestGiftSongTwiceFails(t *testing.T) {
	f := newFixture(t, 250)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID := f.release(artistAddr, artist, 1000)

	err := f.engine.GiftSong(listenerAddr, listener, songID, listener)
	require.True(t, errors.Is(err, ErrNotPrincipalArtist))

	require.NoError(t, f.engine.GiftSong(artistAddr, artist, songID, listener))
	err = f.engine.GiftSong(artistAddr, artist, songID, listener)
	require.True(t, errors.Is(err, songs.ErrAlreadyOwned))

	song, err := f.engine.GetSong(songID)
	require.NoError(t, err)
	require.EqualValues(t, 1, song.PurchaseCount)
	require.Equal(t, []uint64{songID}, f.user(listener).Purchased)
	require.Zero(t, f.balance(listener))
	require.Zero(t, f.balance(artist))
	require.Zero(t, f.pool())
}

func TestGiftAlbumIgnoresPurchasability(t *testing.T) {
	f := newFixture(t, 0)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID := f.release(artistAddr, artist, 5)
	album, err := f.engine.stores.Albums.AlbumOfSong(songID)
	require.NoError(t, err)

	require.NoError(t, f.engine.GiftAlbum(artistAddr, artist, album, listener))
	require.Equal(t, []uint64{songID}, f.user(listener).Purchased)
	owned, err := f.engine.OwnsAlbum(album, listener)
	require.NoError(t, err)
	require.True(t, owned)
}

func TestSongSplitDistribution(t *testing.T) {
	f := newFixture(t, 0)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	collab := f.register(collabAddr, "collab")
	songID := f.release(artistAddr, artist, 1000)

	err := f.engine.SetSongSplit(collabAddr, collab, songID, []splits.Share{{RecipientKind: splits.RecipientUser, RecipientID: collab, Bps: 10_000}})
	require.True(t, errors.Is(err, ErrNotPrincipalArtist))

	require.NoError(t, f.engine.SetSongSplit(artistAddr, artist, songID, []splits.Share{
		{RecipientKind: splits.RecipientArtist, RecipientID: artist, Bps: 6_000},
		{RecipientKind: splits.RecipientUser, RecipientID: collab, Bps: 4_000},
	}))
	f.fund(listenerAddr, listener, 1000)
	require.NoError(t, f.engine.PurchaseSong(listenerAddr, listener, songID, nil))

	require.EqualValues(t, 600, f.balance(artist))
	require.EqualValues(t, 600, f.user(artist).AccumulatedRoyalties.Uint64())
	require.EqualValues(t, 400, f.balance(collab))
	require.Zero(t, f.user(collab).AccumulatedRoyalties.Uint64())
}

func TestUserSplitRemainderGoesToPrincipal(t *testing.T) {
	f := newFixture(t, 0)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	collab := f.register(collabAddr, "collab")
	songID := f.release(artistAddr, artist, 100)

	require.NoError(t, f.engine.SetUserSplit(artistAddr, artist, []splits.Share{
		{RecipientKind: splits.RecipientArtist, RecipientID: collab, Bps: 3_333},
		{RecipientKind: splits.RecipientArtist, RecipientID: listener, Bps: 3_333},
		{RecipientKind: splits.RecipientArtist, RecipientID: artist, Bps: 3_334},
	}))
	shares, err := f.engine.GetSplit(splits.EntityUser, artist)
	require.NoError(t, err)
	require.Len(t, shares, 3)

	f.fund(listenerAddr, listener, 100)
	require.NoError(t, f.engine.PurchaseSong(listenerAddr, listener, songID, nil))

	require.EqualValues(t, 33, f.balance(collab))
	require.EqualValues(t, 33, f.balance(listener))
	require.EqualValues(t, 34, f.balance(artist))
	require.EqualValues(t, 100, f.tokenBalance(orchestratorAddr))
}

func TestInvalidSplitKeepsPriorConfiguration(t *testing.T) {
	f := newFixture(t, 0)
	artist := f.register(artistAddr, "artist")
	collab := f.register(collabAddr, "collab")
	valid := []splits.Share{{RecipientKind: splits.RecipientArtist, RecipientID: artist, Bps: 5_000}, {RecipientKind: splits.RecipientUser, RecipientID: collab, Bps: 5_000}}
	require.NoError(t, f.engine.SetUserSplit(artistAddr, artist, valid))

	err := f.engine.SetUserSplit(artistAddr, artist, []splits.Share{{RecipientKind: splits.RecipientArtist, RecipientID: artist, Bps: 5_000}})
	require.True(t, errors.Is(err, splits.ErrSharesIncomplete))
	err = f.engine.SetUserSplit(artistAddr, artist, []splits.Share{{RecipientKind: splits.RecipientUser, RecipientID: 99, Bps: 10_000}})
	require.True(t, errors.Is(err, users.ErrUserNotFound))

	shares, err := f.engine.GetSplit(splits.EntityUser, artist)
	require.NoError(t, err)
	require.Equal(t, valid, shares)
}

func TestRefundSong(t *testing.T) {
	f := newFixture(t, 250)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID := f.release(artistAddr, artist, 1000)
	f.fund(listenerAddr, listener, 1025)
	require.NoError(t, f.engine.PurchaseSong(listenerAddr, listener, songID, nil))

	err := f.engine.RefundSong(artistAddr, songID, listener, uint256.NewInt(1000))
	require.True(t, errors.Is(err, ErrNotAdministrator))

	require.NoError(t, f.engine.RefundSong(adminAddr, songID, listener, uint256.NewInt(1000)))
	require.EqualValues(t, 1000, f.balance(listener))
	require.Zero(t, f.balance(artist))
	require.Zero(t, f.user(artist).AccumulatedRoyalties.Uint64())
	require.Empty(t, f.user(listener).Purchased)
	owned, err := f.engine.OwnsSong(songID, listener)
	require.NoError(t, err)
	require.False(t, owned)

	err = f.engine.RefundSong(adminAddr, songID, listener, nil)
	require.True(t, errors.Is(err, songs.ErrNotOwned))
}

func TestRefundAlbumChecksArtistBalance(t *testing.T) {
	f := newFixture(t, 0)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")
	songID, err := f.engine.RegisterSong(artistAddr, artist, SongParams{Title: "Track"})
	require.NoError(t, err)
	albumID, err := f.engine.RegisterAlbum(artistAddr, artist, AlbumParams{Title: "LP", SongIDs: []uint64{songID}, NetPrice: uint256.NewInt(50), Purchasable: true})
	require.NoError(t, err)
	f.fund(listenerAddr, listener, 50)
	require.NoError(t, f.engine.PurchaseAlbum(listenerAddr, listener, albumID, nil))

	err = f.engine.RefundAlbum(adminAddr, albumID, listener, uint256.NewInt(51))
	require.True(t, errors.Is(err, users.ErrInsufficientBalance))
	require.Equal(t, []uint64{songID}, f.user(listener).Purchased)

	require.NoError(t, f.engine.RefundAlbum(adminAddr, albumID, listener, uint256.NewInt(50)))
	require.Empty(t, f.user(listener).Purchased)
	require.EqualValues(t, 50, f.balance(listener))
}

func TestDepositWithdrawAndDonate(t *testing.T) {
	f := newFixture(t, 0)
	listener := f.register(listenerAddr, "listener")
	artist := f.register(artistAddr, "artist")

	require.NoError(t, f.token.Mint(listenerAddr, uint256.NewInt(500)))
	err := f.engine.DepositFunds(listenerAddr, listener, uint256.NewInt(100))
	require.True(t, errors.Is(err, stablecoin.ErrInsufficientAllowance))
	require.Zero(t, f.balance(listener))

	require.NoError(t, f.token.Approve(listenerAddr, orchestratorAddr, uint256.NewInt(500)))
	require.NoError(t, f.engine.DepositFunds(listenerAddr, listener, uint256.NewInt(300)))
	require.NoError(t, f.engine.DepositFundsToAnotherUser(listenerAddr, listener, artist, uint256.NewInt(50)))
	require.EqualValues(t, 300, f.balance(listener))
	require.EqualValues(t, 50, f.balance(artist))
	require.EqualValues(t, 150, f.tokenBalance(listenerAddr))

	require.NoError(t, f.engine.MakeDonation(listenerAddr, listener, artist, uint256.NewInt(20)))
	require.EqualValues(t, 280, f.balance(listener))
	require.EqualValues(t, 70, f.balance(artist))
	require.EqualValues(t, 20, f.user(artist).AccumulatedRoyalties.Uint64())

	err = f.engine.MakeDonation(listenerAddr, listener, artist, uint256.NewInt(281))
	require.True(t, errors.Is(err, users.ErrInsufficientBalance))

	err = f.engine.WithdrawFunds(artistAddr, listener, uint256.NewInt(1))
	require.True(t, errors.Is(err, ErrNotUserOwner))
	require.NoError(t, f.engine.WithdrawFunds(listenerAddr, listener, uint256.NewInt(80)))
	require.EqualValues(t, 200, f.balance(listener))
	require.EqualValues(t, 230, f.tokenBalance(listenerAddr))
	require.EqualValues(t, 270, f.tokenBalance(orchestratorAddr))

	require.True(t, errors.Is(f.engine.WithdrawFunds(listenerAddr, listener, nil), ErrZeroAmount))
	require.EqualValues(t, 350, f.metrics.custody[CustodyDeposit])
	require.EqualValues(t, 80, f.metrics.custody[CustodyWithdraw])
}
