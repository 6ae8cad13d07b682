package albums

import (
	"encoding/binary"
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
	namespace = "albums"
	entity    = "album"
)

var (
	ErrAlbumNotFound    = errors.NewCode(errors.KindExistence, "albums: album not found")
	ErrAlbumBanned      = errors.NewCode(errors.KindState, "albums: album banned")
	ErrNotPurchasable   = errors.NewCode(errors.KindState, "albums: album not purchasable")
	ErrAlreadyOwned     = errors.NewCode(errors.KindState, "albums: user already owns album")
	ErrNotOwned         = errors.NewCode(errors.KindState, "albums: user does not own album")
	ErrMaxSupplyReached = errors.NewCode(errors.KindState, "albums: special edition sold out")
	ErrEmptyTitle       = errors.NewCode(errors.KindValidation, "albums: title must not be empty")
	ErrEmptySongList    = errors.NewCode(errors.KindValidation, "albums: song list must not be empty")
	ErrDuplicateSong    = errors.NewCode(errors.KindValidation, "albums: song listed twice")
	ErrSongClaimed      = errors.NewCode(errors.KindValidation, "albums: song already belongs to another album")
	ErrEmptyEditionName = errors.NewCode(errors.KindValidation, "albums: special edition name must not be empty")
	ErrZeroMaxSupply    = errors.NewCode(errors.KindValidation, "albums: special edition max supply must not be zero")
	ErrMaxSupplyTooLow  = errors.NewCode(errors.KindValidation, "albums: max supply must exceed purchase count")
)

// Store is the album database. Besides album records it keeps the global
// song → album claim index that guarantees a song appears in at most one
// album.
type Store struct {
	state   *state.Manager
	address ethcommon.Address
	access  *nativecommon.Access
	ids     *nativecommon.Counter
	emitter events.Emitter
}

// NewStore binds the album database to st.
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

func ownerKey(id, user uint64) []byte { return state.Key(namespace, "owner", id, user) }

func claimKey(songID uint64) []byte { return state.Key(namespace, "claim", songID) }

func (s *Store) load(id uint64) (*Album, error) {
	var album Album
	ok, err := s.state.GetRLP(recordKey(id), &album)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.With(ErrAlbumNotFound, entity, id)
	}
	album.ensureDefaults()
	return &album, nil
}

func (s *Store) store(album *Album) error {
	return s.state.PutRLP(recordKey(album.ID), album)
}

func (s *Store) loadUnbanned(id uint64) (*Album, error) {
	album, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if album.Banned {
		return nil, errors.With(ErrAlbumBanned, entity, id)
	}
	return album, nil
}

func (s *Store) claimOf(songID uint64) (uint64, error) {
	raw, ok, err := s.state.Get(claimKey(songID))
	if err != nil || !ok {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (s *Store) claim(songID, albumID uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], albumID)
	return s.state.Put(claimKey(songID), buf[:])
}

// checkSongs validates a song list for albumID: non-empty, no duplicates and
// no song claimed by a different album.
func (s *Store) checkSongs(albumID uint64, songIDs []uint64) error {
	if len(songIDs) == 0 {
		return ErrEmptySongList
	}
	seen := make(map[uint64]struct{}, len(songIDs))
	for _, songID := range songIDs {
		if _, dup := seen[songID]; dup {
			return errors.With(ErrDuplicateSong, "song", songID)
		}
		seen[songID] = struct{}{}
		owner, err := s.claimOf(songID)
		if err != nil {
			return err
		}
		if owner != 0 && owner != albumID {
			return errors.With(ErrSongClaimed, "song", songID)
		}
	}
	return nil
}

func checkEdition(edition Edition, purchaseCount uint64) *errors.Code {
	if !edition.Special {
		return nil
	}
	if strings.TrimSpace(edition.Name) == "" {
		return ErrEmptyEditionName
	}
	if edition.MaxSupply == 0 {
		return ErrZeroMaxSupply
	}
	if edition.MaxSupply <= purchaseCount {
		return ErrMaxSupplyTooLow
	}
	return nil
}

func applyEdition(album *Album, edition Edition) {
	album.SpecialEdition = edition.Special
	if edition.Special {
		album.SpecialEditionName = strings.TrimSpace(edition.Name)
		album.MaxSupply = edition.MaxSupply
		return
	}
	album.SpecialEditionName = ""
	album.MaxSupply = 0
}

// Register lists a new album claiming songIDs and returns its id.
func (s *Store) Register(caller ethcommon.Address, title string, principalArtistID uint64, metadataURI string, songIDs []uint64, netPrice *uint256.Int, purchasable bool, edition Edition) (uint64, error) {
	if err := s.access.Require(caller); err != nil {
		return 0, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, ErrEmptyTitle
	}
	if code := checkEdition(edition, 0); code != nil {
		return 0, code
	}
	if err := s.checkSongs(0, songIDs); err != nil {
		return 0, err
	}
	id, err := s.ids.Next()
	if err != nil {
		return 0, err
	}
	album := &Album{
		ID:                id,
		Title:             title,
		PrincipalArtistID: principalArtistID,
		MetadataURI:       metadataURI,
		SongIDs:           append([]uint64{}, songIDs...),
		NetPrice:          amountOrZero(netPrice),
		Purchasable:       purchasable,
	}
	applyEdition(album, edition)
	for _, songID := range songIDs {
		if err := s.claim(songID, id); err != nil {
			return 0, err
		}
	}
	if err := s.store(album); err != nil {
		return 0, err
	}
	s.emit(albumEvent(EventTypeRegistered, album))
	return id, nil
}

// Change replaces the editable fields of the album, including its song list.
// Songs dropped from the list lose their claim; new songs are claimed.
func (s *Store) Change(caller ethcommon.Address, id uint64, title, metadataURI string, songIDs []uint64, netPrice *uint256.Int, purchasable bool, edition Edition) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	album, err := s.loadUnbanned(id)
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.With(ErrEmptyTitle, entity, id)
	}
	if err := s.checkSongs(id, songIDs); err != nil {
		return err
	}
	if code := checkEdition(edition, album.PurchaseCount); code != nil {
		return errors.With(code, entity, id)
	}
	kept := make(map[uint64]struct{}, len(songIDs))
	for _, songID := range songIDs {
		kept[songID] = struct{}{}
	}
	for _, songID := range album.SongIDs {
		if _, ok := kept[songID]; ok {
			continue
		}
		if err := s.state.Delete(claimKey(songID)); err != nil {
			return err
		}
	}
	for _, songID := range songIDs {
		if err := s.claim(songID, id); err != nil {
			return err
		}
	}
	album.Title = title
	album.MetadataURI = metadataURI
	album.SongIDs = append([]uint64{}, songIDs...)
	album.NetPrice = amountOrZero(netPrice)
	album.Purchasable = purchasable
	applyEdition(album, edition)
	if err := s.store(album); err != nil {
		return err
	}
	s.emit(albumEvent(EventTypeChanged, album))
	return nil
}

// ChangePurchaseability toggles whether the album can be bought.
func (s *Store) ChangePurchaseability(caller ethcommon.Address, id uint64, purchasable bool) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	album, err := s.loadUnbanned(id)
	if err != nil {
		return err
	}
	album.Purchasable = purchasable
	if err := s.store(album); err != nil {
		return err
	}
	s.emit(albumEvent(EventTypePurchasable, album))
	return nil
}

// ChangePrice sets the net price.
func (s *Store) ChangePrice(caller ethcommon.Address, id uint64, netPrice *uint256.Int) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	album, err := s.loadUnbanned(id)
	if err != nil {
		return err
	}
	album.NetPrice = amountOrZero(netPrice)
	if err := s.store(album); err != nil {
		return err
	}
	s.emit(albumEvent(EventTypePriceChanged, album))
	return nil
}

// Purchase records buyerID as an owner and returns the album, whose SongIDs
// the caller must add to the buyer's library.
func (s *Store) Purchase(caller ethcommon.Address, id uint64, buyerID uint64) (*Album, error) {
	return s.acquire(caller, id, buyerID, true, EventTypePurchased)
}

// Gift records recipientID as an owner without checking purchasability.
func (s *Store) Gift(caller ethcommon.Address, id uint64, recipientID uint64) (*Album, error) {
	return s.acquire(caller, id, recipientID, false, EventTypeGifted)
}

func (s *Store) acquire(caller ethcommon.Address, id uint64, userID uint64, requirePurchasable bool, eventType string) (*Album, error) {
	if err := s.access.Require(caller); err != nil {
		return nil, err
	}
	album, err := s.loadUnbanned(id)
	if err != nil {
		return nil, err
	}
	if requirePurchasable && !album.Purchasable {
		return nil, errors.With(ErrNotPurchasable, entity, id)
	}
	owned, err := s.state.Has(ownerKey(id, userID))
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, errors.With(ErrAlreadyOwned, entity, id)
	}
	if album.SoldOut() {
		return nil, errors.With(ErrMaxSupplyReached, entity, id)
	}
	album.PurchaseCount++
	if err := s.store(album); err != nil {
		return nil, err
	}
	if err := s.state.Put(ownerKey(id, userID), []byte{1}); err != nil {
		return nil, err
	}
	s.emit(ownershipEvent(eventType, album, userID))
	return album.Clone(), nil
}

// Refund revokes buyerID's ownership and returns the album.
func (s *Store) Refund(caller ethcommon.Address, id uint64, buyerID uint64) (*Album, error) {
	if err := s.access.Require(caller); err != nil {
		return nil, err
	}
	album, err := s.load(id)
	if err != nil {
		return nil, err
	}
	owned, err := s.state.Has(ownerKey(id, buyerID))
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, errors.With(ErrNotOwned, entity, id)
	}
	if album.PurchaseCount > 0 {
		album.PurchaseCount--
	}
	if err := s.store(album); err != nil {
		return nil, err
	}
	if err := s.state.Delete(ownerKey(id, buyerID)); err != nil {
		return nil, err
	}
	s.emit(ownershipEvent(EventTypeRefunded, album, buyerID))
	return album.Clone(), nil
}

// SetBannedStatus bans or unbans the album.
func (s *Store) SetBannedStatus(caller ethcommon.Address, id uint64, banned bool) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	album, err := s.load(id)
	if err != nil {
		return err
	}
	album.Banned = banned
	if err := s.store(album); err != nil {
		return err
	}
	s.emit(bannedEvent(id, banned))
	return nil
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
