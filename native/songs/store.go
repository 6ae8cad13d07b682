package songs

import (
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/errors"
	"musicchain/core/events"
	"musicchain/core/state"
	"musicchain/core/types"
	nativecommon "musicchain/native/common"
)

const (
	namespace = "songs"
	entity    = "song"
)

var (
	ErrSongNotFound       = errors.NewCode(errors.KindExistence, "songs: song not found")
	ErrSongBanned         = errors.NewCode(errors.KindState, "songs: song banned")
	ErrNotPurchasable     = errors.NewCode(errors.KindState, "songs: song not purchasable")
	ErrAlreadyOwned       = errors.NewCode(errors.KindState, "songs: user already owns song")
	ErrNotOwned           = errors.NewCode(errors.KindState, "songs: user does not own song")
	ErrNotAssignedToAlbum = errors.NewCode(errors.KindState, "songs: song not assigned to an album")
	ErrEmptyTitle         = errors.NewCode(errors.KindValidation, "songs: title must not be empty")
	ErrZeroAlbum          = errors.NewCode(errors.KindValidation, "songs: album id must not be zero")
)

// Store is the song database. Every mutation must be issued by the store's
// coordinator.
type Store struct {
	state   *state.Manager
	address ethcommon.Address
	access  *nativecommon.Access
	ids     *nativecommon.Counter
	emitter events.Emitter
}

// NewStore binds the song database to st.
func NewStore(st *state.Manager, address, coordinator ethcommon.Address) (*Store, error) {
	access, err := nativecommon.NewAccess(st, namespace, coordinator)
	if err != nil {
		return nil, err
	}
	return &Store{
		state:   st,
		address: address,
		access:  access,
		ids:     nativecommon.NewCounter(st, namespace),
		emitter: events.NoopEmitter{},
	}, nil
}

// SetEmitter configures the event emitter used by the store.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// Address identifies the store.
func (s *Store) Address() ethcommon.Address { return s.address }

// Coordinator returns the address allowed to mutate the store.
func (s *Store) Coordinator() (ethcommon.Address, error) { return s.access.Coordinator() }

// TransferCoordinator hands mutation rights to next.
func (s *Store) TransferCoordinator(caller, next ethcommon.Address) error {
	return s.access.Transfer(caller, next)
}

func (s *Store) emit(evt *types.Event) {
	if evt == nil {
		return
	}
	s.emitter.Emit(events.Wrap(evt))
}

func recordKey(id uint64) []byte { return state.Key(namespace, "record", id) }

func ownerKey(id uint64, user uint64) []byte { return state.Key(namespace, "owner", id, user) }

func (s *Store) load(id uint64) (*Song, error) {
	var song Song
	ok, err := s.state.GetRLP(recordKey(id), &song)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.With(ErrSongNotFound, entity, id)
	}
	song.ensureDefaults()
	return &song, nil
}

func (s *Store) store(song *Song) error {
	return s.state.PutRLP(recordKey(song.ID), song)
}

func (s *Store) loadUnbanned(id uint64) (*Song, error) {
	song, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if song.Banned {
		return nil, errors.With(ErrSongBanned, entity, id)
	}
	return song, nil
}

// loadEditable applies the gating shared by every metadata, price and
// availability change: the song must exist, be unbanned and be assigned to
// an album.
func (s *Store) loadEditable(caller ethcommon.Address, id uint64) (*Song, error) {
	if err := s.access.Require(caller); err != nil {
		return nil, err
	}
	song, err := s.loadUnbanned(id)
	if err != nil {
		return nil, err
	}
	if !song.Assigned() {
		return nil, errors.With(ErrNotAssignedToAlbum, entity, id)
	}
	return song, nil
}

func (s *Store) owns(id, user uint64) (bool, error) {
	return s.state.Has(ownerKey(id, user))
}

// Register lists a new song and returns its id.
func (s *Store) Register(caller ethcommon.Address, title string, principalArtistID uint64, featuredArtistIDs []uint64, mediaURI, metadataURI string, purchasable bool, netPrice *uint256.Int) (uint64, error) {
	if err := s.access.Require(caller); err != nil {
		return 0, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, ErrEmptyTitle
	}
	id, err := s.ids.Next()
	if err != nil {
		return 0, err
	}
	song := &Song{
		ID:                id,
		Title:             title,
		PrincipalArtistID: principalArtistID,
		FeaturedArtistIDs: append([]uint64{}, featuredArtistIDs...),
		MediaURI:          mediaURI,
		MetadataURI:       metadataURI,
		Purchasable:       purchasable,
		NetPrice:          amountOrZero(netPrice),
	}
	if err := s.store(song); err != nil {
		return 0, err
	}
	s.emit(songEvent(EventTypeRegistered, song))
	return id, nil
}

// Change replaces every editable field of the song.
func (s *Store) Change(caller ethcommon.Address, id uint64, title string, featuredArtistIDs []uint64, mediaURI, metadataURI string, purchasable bool, netPrice *uint256.Int) error {
	song, err := s.loadEditable(caller, id)
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.With(ErrEmptyTitle, entity, id)
	}
	song.Title = title
	song.FeaturedArtistIDs = append([]uint64{}, featuredArtistIDs...)
	song.MediaURI = mediaURI
	song.MetadataURI = metadataURI
	song.Purchasable = purchasable
	song.NetPrice = amountOrZero(netPrice)
	if err := s.store(song); err != nil {
		return err
	}
	s.emit(songEvent(EventTypeChanged, song))
	return nil
}

// ChangePurchaseability toggles whether the song can be bought.
func (s *Store) ChangePurchaseability(caller ethcommon.Address, id uint64, purchasable bool) error {
	song, err := s.loadEditable(caller, id)
	if err != nil {
		return err
	}
	song.Purchasable = purchasable
	if err := s.store(song); err != nil {
		return err
	}
	s.emit(songEvent(EventTypePurchasable, song))
	return nil
}

// ChangePrice sets the net price.
func (s *Store) ChangePrice(caller ethcommon.Address, id uint64, netPrice *uint256.Int) error {
	song, err := s.loadEditable(caller, id)
	if err != nil {
		return err
	}
	song.NetPrice = amountOrZero(netPrice)
	if err := s.store(song); err != nil {
		return err
	}
	s.emit(songEvent(EventTypePriceChanged, song))
	return nil
}

// Purchase records buyerID as an owner of the song and returns the updated
// record so the caller can settle payment.
func (s *Store) Purchase(caller ethcommon.Address, id uint64, buyerID uint64) (*Song, error) {
	return s.acquire(caller, id, buyerID, true, EventTypePurchased)
}

// Gift records recipientID as an owner without checking purchasability.
func (s *Store) Gift(caller ethcommon.Address, id uint64, recipientID uint64) (*Song, error) {
	return s.acquire(caller, id, recipientID, false, EventTypeGifted)
}

func (s *Store) acquire(caller ethcommon.Address, id uint64, userID uint64, requirePurchasable bool, eventType string) (*Song, error) {
	if err := s.access.Require(caller); err != nil {
		return nil, err
	}
	song, err := s.loadUnbanned(id)
	if err != nil {
		return nil, err
	}
	if requirePurchasable && !song.Purchasable {
		return nil, errors.With(ErrNotPurchasable, entity, id)
	}
	owned, err := s.owns(id, userID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, errors.With(ErrAlreadyOwned, entity, id)
	}
	if !song.Assigned() {
		return nil, errors.With(ErrNotAssignedToAlbum, entity, id)
	}
	song.PurchaseCount++
	if err := s.store(song); err != nil {
		return nil, err
	}
	if err := s.state.Put(ownerKey(id, userID), []byte{1}); err != nil {
		return nil, err
	}
	s.emit(ownershipEvent(eventType, song, userID))
	return song.Clone(), nil
}

// Refund revokes buyerID's ownership.
func (s *Store) Refund(caller ethcommon.Address, id uint64, buyerID uint64) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	song, err := s.load(id)
	if err != nil {
		return err
	}
	owned, err := s.owns(id, buyerID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.With(ErrNotOwned, entity, id)
	}
	if song.PurchaseCount > 0 {
		song.PurchaseCount--
	}
	if err := s.store(song); err != nil {
		return err
	}
	if err := s.state.Delete(ownerKey(id, buyerID)); err != nil {
		return err
	}
	s.emit(ownershipEvent(EventTypeRefunded, song, buyerID))
	return nil
}

// AssignToAlbum records albumID as the album owning the song.
func (s *Store) AssignToAlbum(caller ethcommon.Address, id uint64, albumID uint64) error {
	return s.AssignToAlbumBatch(caller, []uint64{id}, albumID)
}

// AssignToAlbumBatch assigns every song in ids to albumID.
func (s *Store) AssignToAlbumBatch(caller ethcommon.Address, ids []uint64, albumID uint64) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	if albumID == 0 {
		return ErrZeroAlbum
	}
	for _, id := range ids {
		song, err := s.loadUnbanned(id)
		if err != nil {
			return err
		}
		song.AlbumID = albumID
		if err := s.store(song); err != nil {
			return err
		}
	}
	s.emit(albumEvent(EventTypeAlbumAssigned, ids, albumID))
	return nil
}

// ReleaseFromAlbum clears the album assignment of every song in ids.
func (s *Store) ReleaseFromAlbum(caller ethcommon.Address, ids []uint64) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	for _, id := range ids {
		song, err := s.load(id)
		if err != nil {
			return err
		}
		song.AlbumID = 0
		if err := s.store(song); err != nil {
			return err
		}
	}
	s.emit(albumEvent(EventTypeAlbumReleased, ids, 0))
	return nil
}

// SetBannedStatus bans or unbans a song.
func (s *Store) SetBannedStatus(caller ethcommon.Address, id uint64, banned bool) error {
	return s.SetBannedStatusBatch(caller, []uint64{id}, banned)
}

// SetBannedStatusBatch bans or unbans every song in ids.
func (s *Store) SetBannedStatusBatch(caller ethcommon.Address, ids []uint64, banned bool) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	for _, id := range ids {
		song, err := s.load(id)
		if err != nil {
			return err
		}
		song.Banned = banned
		if err := s.store(song); err != nil {
			return err
		}
	}
	s.emit(bannedEvent(ids, banned))
	return nil
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
