package splits

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/errors"
	"musicchain/core/events"
	"musicchain/core/state"
	"musicchain/core/types"
	nativecommon "musicchain/native/common"
	"musicchain/native/fees"
)

const namespace = "splits"

var (
	ErrSplitNotFound    = errors.NewCode(errors.KindExistence, "splits: split not configured")
	ErrSplitExists      = errors.NewCode(errors.KindState, "splits: split already configured")
	ErrInvalidEntity    = errors.NewCode(errors.KindValidation, "splits: unknown entity kind")
	ErrInvalidRecipient = errors.NewCode(errors.KindValidation, "splits: unknown recipient kind")
	ErrEmptyShares      = errors.NewCode(errors.KindValidation, "splits: share list must not be empty")
	ErrZeroShare        = errors.NewCode(errors.KindValidation, "splits: share must not be zero")
	ErrSharesOverflow   = errors.NewCode(errors.KindValidation, "splits: shares exceed 10000 bps")
	ErrSharesIncomplete = errors.NewCode(errors.KindValidation, "splits: shares must sum to 10000 bps")
)

// Store keeps revenue splits keyed by (entity kind, id).
type Store struct {
	state   *state.Manager
	address ethcommon.Address
	access  *nativecommon.Access
	emitter events.Emitter
}

// NewStore binds the splitter database to st.
func NewStore(st *state.Manager, address, coordinator ethcommon.Address) (*Store, error) {
	access, err := nativecommon.NewAccess(st, namespace, coordinator)
	if err != nil {
		return nil, err
	}
	return &Store{state: st, address: address, access: access, emitter: events.NoopEmitter{}}, nil
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

func configKey(kind EntityKind, id uint64) []byte {
	return state.Key(namespace, "config", uint8(kind), id)
}

func validEntity(kind EntityKind) bool { return kind == EntityUser || kind == EntitySong }

// ValidateShares checks a share list: non-empty, every share non-zero, the
// running sum never above 10000 and the final sum exactly 10000.
func ValidateShares(shares []Share) error {
	if len(shares) == 0 {
		return ErrEmptyShares
	}
	var sum uint64
	for _, share := range shares {
		if share.RecipientKind != RecipientArtist && share.RecipientKind != RecipientUser {
			return ErrInvalidRecipient
		}
		if share.Bps == 0 {
			return errors.With(ErrZeroShare, share.RecipientKind.String(), share.RecipientID)
		}
		if share.Bps > fees.BpsDenominator || sum+share.Bps > fees.BpsDenominator {
			return errors.With(ErrSharesOverflow, share.RecipientKind.String(), share.RecipientID)
		}
		sum += share.Bps
	}
	if sum != fees.BpsDenominator {
		return ErrSharesIncomplete
	}
	return nil
}

func (s *Store) load(kind EntityKind, id uint64) (*Config, bool, error) {
	var cfg Config
	ok, err := s.state.GetRLP(configKey(kind, id), &cfg)
	if err != nil || !ok {
		return nil, false, err
	}
	return &cfg, true, nil
}

func (s *Store) write(caller ethcommon.Address, kind EntityKind, id uint64, shares []Share, create bool) error {
	if err := s.access.Require(caller); err != nil {
		return err
	}
	if !validEntity(kind) {
		return ErrInvalidEntity
	}
	if err := ValidateShares(shares); err != nil {
		return err
	}
	_, exists, err := s.load(kind, id)
	if err != nil {
		return err
	}
	if create && exists {
		return errors.With(ErrSplitExists, kind.String(), id)
	}
	if !create && !exists {
		return errors.With(ErrSplitNotFound, kind.String(), id)
	}
	cfg := &Config{Shares: append([]Share(nil), shares...)}
	if err := s.state.PutRLP(configKey(kind, id), cfg); err != nil {
		return err
	}
	eventType := EventTypeChanged
	if create {
		eventType = EventTypeRegistered
	}
	s.emit(splitEvent(eventType, kind, id, shares))
	return nil
}

// Register stores the first split of (kind, id).
func (s *Store) Register(caller ethcommon.Address, kind EntityKind, id uint64, shares []Share) error {
	return s.write(caller, kind, id, shares, true)
}

// Change replaces the split of (kind, id). An invalid list leaves the prior
// configuration untouched.
func (s *Store) Change(caller ethcommon.Address, kind EntityKind, id uint64, shares []Share) error {
	return s.write(caller, kind, id, shares, false)
}

// Shares returns the configured shares of (kind, id), or nil when none is set.
func (s *Store) Shares(kind EntityKind, id uint64) ([]Share, error) {
	cfg, ok, err := s.load(kind, id)
	if err != nil || !ok {
		return nil, err
	}
	return cfg.Shares, nil
}

// Exists reports whether (kind, id) has a split configured.
func (s *Store) Exists(kind EntityKind, id uint64) (bool, error) {
	return s.state.Has(configKey(kind, id))
}

// CalculateSplit distributes amount over the split of (kind, id). With fewer
// than two shares the whole amount goes to the principal sentinel (id 0);
// otherwise each share receives floor(amount × bps / 10000). The floored
// remainder is not part of the result.
func (s *Store) CalculateSplit(kind EntityKind, id uint64, amount *uint256.Int) ([]Payout, error) {
	shares, err := s.Shares(kind, id)
	if err != nil {
		return nil, err
	}
	total := new(uint256.Int)
	if amount != nil {
		total.Set(amount)
	}
	if len(shares) < 2 {
		return []Payout{{RecipientKind: RecipientArtist, Amount: total}}, nil
	}
	out := make([]Payout, 0, len(shares))
	for _, share := range shares {
		out = append(out, Payout{
			RecipientKind: share.RecipientKind,
			RecipientID:   share.RecipientID,
			Amount:        fees.Portion(total, share.Bps),
		})
	}
	return out, nil
}
