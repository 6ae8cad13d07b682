package users

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
	namespace = "users"
	entity    = "user"
)

var (
	ErrUserNotFound          = errors.NewCode(errors.KindExistence, "users: user not found")
	ErrUserBanned            = errors.NewCode(errors.KindState, "users: user banned")
	ErrEmptyName             = errors.NewCode(errors.KindValidation, "users: name must not be empty")
	ErrZeroAddress           = errors.NewCode(errors.KindValidation, "users: address must not be zero")
	ErrAddressTaken          = errors.NewCode(errors.KindValidation, "users: address already registered")
	ErrInsufficientBalance   = errors.NewCode(errors.KindBalance, "users: insufficient balance")
	ErrInsufficientRoyalties = errors.NewCode(errors.KindBalance, "users: insufficient accumulated royalties")
	ErrBalanceOverflow       = errors.NewCode(errors.KindBalance, "users: balance overflow")
	ErrSongNotInLibrary      = errors.NewCode(errors.KindState, "users: song not in library")
)

// Store is the user database. Every mutation must be issued by the store's
// coordinator.
type Store struct {
	state   *state.Manager
	address ethcommon.Address
	access  *nativecommon.Access
	ids     *nativecommon.Counter
	emitter events.Emitter
}

// NewStore binds the user database to st. coordinator is recorded only when
// the state does not carry one yet.
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

// SetEmitter configures the event emitter used by the store. Passing nil resets
// the emitter to a no-op implementation.
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

func addressKey(a ethcommon.Address) []byte { return state.Key(namespace, "by-address", a) }

func (s *Store) load(id uint64) (*User, error) {
	var u User
	ok, err := s.state.GetRLP(recordKey(id), &u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.With(ErrUserNotFound, entity, id)
	}
	u.ensureDefaults()
	return &u, nil
}

func (s *Store) store(u *User) error {
	return s.state.PutRLP(recordKey(u.ID), u)
}

// loadMutable runs the coordinator, existence and ban checks, in that order.
func (s *Store) loadMutable(caller ethcommon.Address, id uint64) (*User, error) {
	if err := s.access.Require(caller); err != nil {
		return nil, err
	}
	u, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if u.Banned {
		return nil, errors.With(ErrUserBanned, entity, id)
	}
	return u, nil
}

func (s *Store) lookupAddress(addr ethcommon.Address) (uint64, error) {
	raw, ok, err := s.state.Get(addressKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (s *Store) indexAddress(addr ethcommon.Address, id uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return s.state.Put(addressKey(addr), buf[:])
}

// Register creates a user owned by addr and returns its id.
func (s *Store) Register(caller ethcommon.Address, name, metadataURI string, addr ethcommon.Address) (uint64, error) {
	if err := s.access.Require(caller); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	if addr == (ethcommon.Address{}) {
		return 0, ErrZeroAddress
	}
	if existing, err := s.lookupAddress(addr); err != nil {
		return 0, err
	} else if existing != 0 {
		return 0, errors.With(ErrAddressTaken, entity, existing)
	}
	id, err := s.ids.Next()
	if err != nil {
		return 0, err
	}
	u := &User{ID: id, Name: name, MetadataURI: metadataURI, Address: addr}
	u.ensureDefaults()
	if err := s.store(u); err != nil {
		return 0, err
	}
	if err := s.indexAddress(addr, id); err != nil {
		return 0, err
	}
	s.emit(registeredEvent(u))
	return id, nil
}

// ChangeBasicData replaces the display name and metadata URI.
func (s *Store) ChangeBasicData(caller ethcommon.Address, id uint64, name, metadataURI string) error {
	u, err := s.loadMutable(caller, id)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.With(ErrEmptyName, entity, id)
	}
	u.Name = name
	u.MetadataURI = metadataURI
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(changedEvent(u))
	return nil
}

// ChangeAddress moves the user to next. The previous address no longer
// resolves to any id afterwards.
func (s *Store) ChangeAddress(caller ethcommon.Address, id uint64, next ethcommon.Address) error {
	u, err := s.loadMutable(caller, id)
	if err != nil {
		return err
	}
	if next == (ethcommon.Address{}) {
		return errors.With(ErrZeroAddress, entity, id)
	}
	if next == u.Address {
		return nil
	}
	if existing, err := s.lookupAddress(next); err != nil {
		return err
	} else if existing != 0 {
		return errors.With(ErrAddressTaken, entity, existing)
	}
	previous := u.Address
	if err := s.state.Delete(addressKey(previous)); err != nil {
		return err
	}
	if err := s.indexAddress(next, id); err != nil {
		return err
	}
	u.Address = next
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(addressChangedEvent(id, previous, next))
	return nil
}

// AddBalance credits amount to the user's balance.
func (s *Store) AddBalance(caller ethcommon.Address, id uint64, amount *uint256.Int) error {
	u, err := s.loadMutable(caller, id)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(u.Balance, amountOrZero(amount))
	if overflow {
		return errors.With(ErrBalanceOverflow, entity, id)
	}
	u.Balance = next
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(amountEvent(EventTypeBalanceChanged, id, DirectionAdd, amount, u.Balance))
	return nil
}

// DeductBalance debits amount, failing when it exceeds the current balance.
func (s *Store) DeductBalance(caller ethcommon.Address, id uint64, amount *uint256.Int) error {
	u, err := s.loadMutable(caller, id)
	if err != nil {
		return err
	}
	next, underflow := new(uint256.Int).SubOverflow(u.Balance, amountOrZero(amount))
	if underflow {
		return errors.With(ErrInsufficientBalance, entity, id)
	}
	u.Balance = next
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(amountEvent(EventTypeBalanceChanged, id, DirectionDeduct, amount, u.Balance))
	return nil
}

// AddAccumulatedRoyalties increments the royalty counter.
func (s *Store) AddAccumulatedRoyalties(caller ethcommon.Address, id uint64, amount *uint256.Int) error {
	u, err := s.loadMutable(caller, id)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(u.AccumulatedRoyalties, amountOrZero(amount))
	if overflow {
		return errors.With(ErrBalanceOverflow, entity, id)
	}
	u.AccumulatedRoyalties = next
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(amountEvent(EventTypeRoyaltiesChanged, id, DirectionAdd, amount, u.AccumulatedRoyalties))
	return nil
}

// DeductAccumulatedRoyalties decrements the royalty counter.
func (s *Store) DeductAccumulatedRoyalties(caller ethcommon.Address, id uint64, amount *uint256.Int) error {
	u, err := s.loadMutable(caller, id)
	if err != nil {
		return err
	}
	next, underflow := new(uint256.Int).SubOverflow(u.AccumulatedRoyalties, amountOrZero(amount))
	if underflow {
		return errors.With(ErrInsufficientRoyalties, entity, id)
	}
	u.AccumulatedRoyalties = next
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(amountEvent(EventTypeRoyaltiesChanged, id, DirectionDeduct, amount, u.AccumulatedRoyalties))
	return nil
}

// AddSong appends songID to the user's library.
func (s *Store) AddSong(caller ethcommon.Address, id uint64, songID uint64) error {
	return s.AddSongs(caller, id, []uint64{songID})
}

// AddSongs appends songIDs to the user's library. Duplicates are kept.
func (s *Store) AddSongs(caller ethcommon.Address, id uint64, songIDs []uint64) error {
	u, err := s.loadMutable(caller, id)
	if err != nil {
		return err
	}
	u.Purchased = append(u.Purchased, songIDs...)
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(libraryEvent(id, DirectionAdd, songIDs))
	return nil
}

// DeleteSong removes the first occurrence of songID from the library.
func (s *Store) DeleteSong(caller ethcommon.Address, id uint64, songID uint64) error {
	return s.DeleteSongs(caller, id, []uint64{songID})
}

// DeleteSongs removes the first occurrence of each id in songIDs. Survivors
// keep their relative order.
func (s *Store) DeleteSongs(caller ethcommon.Address, id uint64, songIDs []uint64) error {
	u, err := s.loadMutable(caller, id)
	if err != nil {
		return err
	}
	library := u.Purchased
	for _, songID := range songIDs {
		idx := indexOf(library, songID)
		if idx < 0 {
			return errors.With(ErrSongNotInLibrary, "song", songID)
		}
		library = append(library[:idx], library[idx+1:]...)
	}
	u.Purchased = library
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(libraryEvent(id, DirectionRemove, songIDs))
	return nil
}

func indexOf(list []uint64, v uint64) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}

// SetBannedStatus bans or unbans the user. It is the only mutation allowed on
// a banned user.
func (s *Store) SetBannedStatus(caller ethcommon.Address, id uint64, banned bool) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	u, err := s.load(id)
	if err != nil {
		return err
	}
	u.Banned = banned
	if err := s.store(u); err != nil {
		return err
	}
	s.emit(bannedEvent(id, banned))
	return nil
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
