package albums

import (
	"errors"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	coreerrors "musicchain/core/errors"
	"musicchain/core/events"
	"musicchain/core/state"
	nativecommon "musicchain/native/common"
	"musicchain/storage"
)

var (
	coordinator = ethcommon.HexToAddress("0xC0")
	stranger    = ethcommon.HexToAddress("0xBAD")
)

func newTestStore(t *testing.T) (*Store, *events.Recorder) {
	t.Helper()
	store, err := NewStore(state.NewManager(storage.NewMemDB()), ethcommon.HexToAddress("0x5103"), coordinator)
	require.NoError(t, err)
	rec := &events.Recorder{}
	store.SetEmitter(rec)
	return store, rec
}

func registerAlbum(t *testing.T, s *Store, songs []uint64, edition Edition) uint64 {
	t.Helper()
	id, err := s.Register(coordinator, "LP", 1, "ipfs://lp", songs, uint256.NewInt(5000), true, edition)
	require.NoError(t, err)
	return id
}

func TestRegisterClaimsSongsGlobally(t *testing.T) {
	s, rec := newTestStore(t)
	first := registerAlbum(t, s, []uint64{1, 2}, Edition{})
	require.EqualValues(t, 1, first)

	_, err := s.Register(coordinator, "Other", 1, "", []uint64{3, 2}, nil, true, Edition{})
	require.True(t, errors.Is(err, ErrSongClaimed))
	entityName, id, ok := coreerrors.IDOf(err)
	require.True(t, ok)
	require.Equal(t, "song", entityName)
	require.EqualValues(t, 2, id)

	// The failed registration must not consume an id or claim song 3.
	count, err := s.Count()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	owner, err := s.AlbumOfSong(2)
	require.NoError(t, err)
	require.Equal(t, first, owner)
	require.Len(t, rec.OfType(EventTypeRegistered), 1)
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestStore(t)
	cases := []struct {
		name    string
		title   string
		songs   []uint64
		edition Edition
		want    error
	}{
		{name: "empty title", title: " ", songs: []uint64{1}, want: ErrEmptyTitle},
		{name: "no songs", title: "x", songs: nil, want: ErrEmptySongList},
		{name: "duplicate song", title: "x", songs: []uint64{4, 4}, want: ErrDuplicateSong},
		{name: "edition without name", title: "x", songs: []uint64{1}, edition: Edition{Special: true, MaxSupply: 10}, want: ErrEmptyEditionName},
		{name: "edition without supply", title: "x", songs: []uint64{1}, edition: Edition{Special: true, Name: "Gold"}, want: ErrZeroMaxSupply},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(coordinator, tc.title, 1, "", tc.songs, nil, true, tc.edition)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
			require.Equal(t, coreerrors.KindValidation, coreerrors.KindOf(err))
		})
	}

	_, err := s.Register(stranger, "x", 1, "", []uint64{1}, nil, true, Edition{})
	require.True(t, errors.Is(err, nativecommon.ErrNotCoordinator))
}

func TestSpecialEditionSupplyCap(t *testing.T) {
	s, _ := newTestStore(t)
	id := registerAlbum(t, s, []uint64{1}, Edition{Special: true, Name: "Gold", MaxSupply: 2})

	_, err := s.Purchase(coordinator, id, 10)
	require.NoError(t, err)
	_, err = s.Gift(coordinator, id, 11)
	require.NoError(t, err)
	_, err = s.Purchase(coordinator, id, 12)
	require.True(t, errors.Is(err, ErrMaxSupplyReached))

	// Raising the cap must exceed the current purchase count.
	err = s.Change(coordinator, id, "LP", "", []uint64{1}, nil, true, Edition{Special: true, Name: "Gold", MaxSupply: 2})
	require.True(t, errors.Is(err, ErrMaxSupplyTooLow))
	require.NoError(t, s.Change(coordinator, id, "LP", "", []uint64{1}, nil, true, Edition{Special: true, Name: "Gold", MaxSupply: 3}))
	_, err = s.Purchase(coordinator, id, 12)
	require.NoError(t, err)
}

func TestPurchaseReturnsSongsAndRejectsRepeat(t *testing.T) {
	s, rec := newTestStore(t)
	id := registerAlbum(t, s, []uint64{3, 1, 2}, Edition{})

	album, err := s.Purchase(coordinator, id, 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 1, 2}, album.SongIDs)
	require.EqualValues(t, 1, album.PurchaseCount)

	_, err = s.Purchase(coordinator, id, 10)
	require.True(t, errors.Is(err, ErrAlreadyOwned))
	stored, err := s.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, 1, stored.PurchaseCount)
	require.Len(t, rec.OfType(EventTypePurchased), 1)
}

func TestPurchasePreconditions(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Purchase(coordinator, 5, 10)
	require.True(t, errors.Is(err, ErrAlbumNotFound))

	id := registerAlbum(t, s, []uint64{1}, Edition{})
	require.NoError(t, s.ChangePurchaseability(coordinator, id, false))
	_, err = s.Purchase(coordinator, id, 10)
	require.True(t, errors.Is(err, ErrNotPurchasable))
	_, err = s.Gift(coordinator, id, 10)
	require.NoError(t, err)

	require.NoError(t, s.SetBannedStatus(coordinator, id, true))
	_, err = s.Gift(coordinator, id, 11)
	require.True(t, errors.Is(err, ErrAlbumBanned))
	require.True(t, errors.Is(s.ChangePrice(coordinator, id, uint256.NewInt(1)), ErrAlbumBanned))
}

func TestChangeMovesClaims(t *testing.T) {
	s, _ := newTestStore(t)
	first := registerAlbum(t, s, []uint64{1, 2}, Edition{})
	second := registerAlbum(t, s, []uint64{3}, Edition{})

	err := s.Change(coordinator, first, "LP", "", []uint64{1, 3}, nil, true, Edition{})
	require.True(t, errors.Is(err, ErrSongClaimed))
	require.True(t, errors.Is(s.Change(coordinator, first, "LP", "", nil, nil, true, Edition{}), ErrEmptySongList))

	require.NoError(t, s.Change(coordinator, first, "LP2", "ipfs://2", []uint64{1, 4}, uint256.NewInt(9), false, Edition{}))
	owner, err := s.AlbumOfSong(2)
	require.NoError(t, err)
	require.Zero(t, owner)
	owner, err = s.AlbumOfSong(4)
	require.NoError(t, err)
	require.Equal(t, first, owner)

	// Song 2 is free again and can join another album.
	require.NoError(t, s.Change(coordinator, second, "EP", "", []uint64{3, 2}, nil, true, Edition{}))

	album, err := s.Get(first)
	require.NoError(t, err)
	require.Equal(t, "LP2", album.Title)
	require.Equal(t, uint64(9), album.NetPrice.Uint64())
	require.False(t, album.Purchasable)
}

func TestRefund(t *testing.T) {
	s, _ := newTestStore(t)
	id := registerAlbum(t, s, []uint64{1, 2}, Edition{})
	_, err := s.Refund(coordinator, id, 10)
	require.True(t, errors.Is(err, ErrNotOwned))

	_, err = s.Purchase(coordinator, id, 10)
	require.NoError(t, err)
	album, err := s.Refund(coordinator, id, 10)
	require.NoError(t, err)
	require.Zero(t, album.PurchaseCount)
	owner, err := s.IsOwner(id, 10)
	require.NoError(t, err)
	require.False(t, owner)
}
