package orchestrator

import (
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/errors"
	"musicchain/core/events"
	"musicchain/core/state"
	"musicchain/core/types"
	"musicchain/native/albums"
	"musicchain/native/fees"
	"musicchain/native/songs"
	"musicchain/native/splits"
	"musicchain/native/users"
)

// Version is reported by the Version query.
const Version = "1.0.0"

// DefaultStablecoinChangeDelay is the timelock applied to stablecoin
// rotations when the configuration leaves it unset.
const DefaultStablecoinChangeDelay = 24 * time.Hour

const namespace = "orchestrator"

var (
	ErrNotAdministrator     = errors.NewCode(errors.KindAuthorization, "orchestrator: caller is not the administrator")
	ErrNotUserOwner         = errors.NewCode(errors.KindAuthorization, "orchestrator: caller does not own user")
	ErrNotPrincipalArtist   = errors.NewCode(errors.KindAuthorization, "orchestrator: user is not the principal artist")
	ErrDatabasesAlreadySet  = errors.NewCode(errors.KindState, "orchestrator: database addresses already set")
	ErrDatabasesNotSet      = errors.NewCode(errors.KindState, "orchestrator: database addresses not set")
	ErrMigrated             = errors.NewCode(errors.KindState, "orchestrator: orchestrator has been migrated")
	ErrUnknownDatabase      = errors.NewCode(errors.KindValidation, "orchestrator: address does not match a bound database")
	ErrZeroAddress          = errors.NewCode(errors.KindValidation, "orchestrator: address must not be zero")
	ErrZeroAmount           = errors.NewCode(errors.KindValidation, "orchestrator: amount must not be zero")
	ErrSongNotFromArtist    = errors.NewCode(errors.KindValidation, "orchestrator: song does not belong to the principal artist")
	ErrInsufficientFees     = errors.NewCode(errors.KindBalance, "orchestrator: insufficient collected fees")
	ErrNoPendingProposal    = errors.NewCode(errors.KindTimelock, "orchestrator: no stablecoin change proposed")
	ErrTimelockActive       = errors.NewCode(errors.KindTimelock, "orchestrator: stablecoin change timelock has not elapsed")
	ErrUnknownStablecoin    = errors.NewCode(errors.KindValidation, "orchestrator: stablecoin address is not a known token")
)

// Stablecoin is the token ledger holding the marketplace custody balance.
type Stablecoin interface {
	Address() ethcommon.Address
	Symbol() string
	Decimals() uint8
	BalanceOf(holder ethcommon.Address) (*uint256.Int, error)
	Transfer(from, to ethcommon.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to ethcommon.Address, amount *uint256.Int) error
}

// TokenResolver maps a stablecoin address to its ledger.
type TokenResolver interface {
	ResolveStablecoin(address ethcommon.Address) (Stablecoin, error)
}

// ResolverFunc adapts a function to TokenResolver.
type ResolverFunc func(address ethcommon.Address) (Stablecoin, error)

func (f ResolverFunc) ResolveStablecoin(address ethcommon.Address) (Stablecoin, error) {
	return f(address)
}

// Stores groups the databases the orchestrator coordinates.
type Stores struct {
	Users  *users.Store
	Songs  *songs.Store
	Albums *albums.Store
	Splits *splits.Store
}

// Config carries the parameters fixed at construction time. FeeBps and
// Stablecoin only seed state on first start; later values come from state.
type Config struct {
	Address               ethcommon.Address
	Administrator         ethcommon.Address
	FeeBps                uint64
	Stablecoin            ethcommon.Address
	StablecoinChangeDelay time.Duration
}

// Engine is the marketplace orchestrator: the single coordinator of the user,
// song, album and splitter databases. Every entry point holds the ledger lock
// and runs in one state transaction.
type Engine struct {
	mu sync.Mutex

	state   *state.Manager
	stores  Stores
	tokens  TokenResolver
	address ethcommon.Address
	admin   ethcommon.Address
	delay   time.Duration

	buffer  *eventBuffer
	logger  *slog.Logger
	metrics Metrics
	nowFn   func() int64
}

// New builds the orchestrator over st. The stores must already name the
// orchestrator address as their coordinator.
func New(st *state.Manager, cfg Config, stores Stores, tokens TokenResolver) (*Engine, error) {
	if cfg.Address == (ethcommon.Address{}) || cfg.Administrator == (ethcommon.Address{}) {
		return nil, ErrZeroAddress
	}
	if err := fees.ValidateBps(cfg.FeeBps); err != nil {
		return nil, err
	}
	delay := cfg.StablecoinChangeDelay
	if delay <= 0 {
		delay = DefaultStablecoinChangeDelay
	}
	e := &Engine{
		state:   st,
		stores:  stores,
		tokens:  tokens,
		address: cfg.Address,
		admin:   cfg.Administrator,
		delay:   delay,
		buffer:  &eventBuffer{sink: events.NoopEmitter{}},
		logger:  slog.Default().With("component", "orchestrator"),
		metrics: noopMetrics{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
	if err := e.seed(cfg); err != nil {
		return nil, err
	}
	if stores.Users != nil {
		stores.Users.SetEmitter(e.buffer)
	}
	if stores.Songs != nil {
		stores.Songs.SetEmitter(e.buffer)
	}
	if stores.Albums != nil {
		stores.Albums.SetEmitter(e.buffer)
	}
	if stores.Splits != nil {
		stores.Splits.SetEmitter(e.buffer)
	}
	return e, nil
}

func (e *Engine) seed(cfg Config) error {
	return e.state.Atomic(func() error {
		if ok, err := e.state.Has(feeBpsKey()); err != nil {
			return err
		} else if !ok {
			if err := e.putFeeBps(cfg.FeeBps); err != nil {
				return err
			}
		}
		if ok, err := e.state.Has(stablecoinKey()); err != nil {
			return err
		} else if !ok && cfg.Stablecoin != (ethcommon.Address{}) {
			return e.state.Put(stablecoinKey(), cfg.Stablecoin.Bytes())
		}
		return nil
	})
}

// SetEmitter configures where committed events are delivered. Store events
// are held until the enclosing call commits and dropped when it fails.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.buffer.sink = emitter
}

// Events returns the transactional emitter. Collaborators sharing the ledger
// state, such as the stablecoin, should emit through it.
func (e *Engine) Events() events.Emitter { return e.buffer }

// SetLogger overrides the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger.With("component", "orchestrator")
}

// SetMetrics installs the metrics sink.
func (e *Engine) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	e.metrics = m
}

// SetNowFunc overrides the unix-seconds clock used by the timelock.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	e.nowFn = now
}

// Address is the orchestrator's own address: the coordinator of every store
// and the custodian of the stablecoin balance.
func (e *Engine) Address() ethcommon.Address { return e.address }

// Administrator returns the address holding administrative rights.
func (e *Engine) Administrator() ethcommon.Address { return e.admin }

func (e *Engine) observeCustody(direction string, amount *uint256.Int) {
	observed := new(uint256.Int).Set(amount)
	e.buffer.onCommit(func() { e.metrics.ObserveCustody(direction, observed) })
}

func (e *Engine) emit(evt *types.Event) {
	if evt == nil {
		return
	}
	e.buffer.Emit(events.Wrap(evt))
}

// mutate runs fn as one serialized, all-or-nothing entry point.
func (e *Engine) mutate(op string, fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := time.Now()
	err := e.state.Atomic(func() error {
		if err := e.requireActive(); err != nil {
			return err
		}
		return fn()
	})
	if err != nil {
		e.buffer.discard()
		e.logger.Debug("operation rejected", slog.String("op", op), slog.Any("error", err))
	} else {
		e.buffer.flush()
		e.logger.Info("operation applied", slog.String("op", op))
		if pool, perr := e.feePool(); perr == nil {
			e.metrics.SetFeePool(pool)
		}
	}
	e.metrics.ObserveOperation(op, err, time.Since(start))
	return err
}

// view runs a read-only query under the ledger lock.
func (e *Engine) view(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

func (e *Engine) requireActive() error {
	migrated, err := e.loadMigration()
	if err != nil {
		return err
	}
	if migrated != nil {
		return ErrMigrated
	}
	return nil
}

func (e *Engine) requireAdmin(caller ethcommon.Address) error {
	if caller != e.admin {
		return ErrNotAdministrator
	}
	return nil
}

func (e *Engine) requireBound() error {
	bound, err := e.loadBinding()
	if err != nil {
		return err
	}
	if bound == nil {
		return ErrDatabasesNotSet
	}
	return nil
}

// requireUser checks that caller is the address on file for userID.
func (e *Engine) requireUser(caller ethcommon.Address, userID uint64) error {
	if err := e.requireBound(); err != nil {
		return err
	}
	addr, err := e.stores.Users.AddressOf(userID)
	if err != nil {
		return err
	}
	if addr != caller {
		return errors.With(ErrNotUserOwner, "user", userID)
	}
	return nil
}

// requireArtist checks caller owns artistID and that the artist is not banned.
func (e *Engine) requireArtist(caller ethcommon.Address, artistID uint64) error {
	if err := e.requireUser(caller, artistID); err != nil {
		return err
	}
	banned, err := e.stores.Users.IsBanned(artistID)
	if err != nil {
		return err
	}
	if banned {
		return errors.With(users.ErrUserBanned, "user", artistID)
	}
	return nil
}

func (e *Engine) requireUsersExist(ids ...uint64) error {
	for _, id := range ids {
		ok, err := e.stores.Users.Exists(id)
		if err != nil {
			return err
		}
		if !ok {
			return errors.With(users.ErrUserNotFound, "user", id)
		}
	}
	return nil
}

func key(parts ...interface{}) []byte { return state.Key(namespace, parts...) }

func feeBpsKey() []byte     { return key("fee-bps") }
func feePoolKey() []byte    { return key("fee-pool") }
func stablecoinKey() []byte { return key("stablecoin") }
func proposalKey() []byte   { return key("proposal") }
func bindingKey() []byte    { return key("databases") }
func migrationKey() []byte  { return key("migration") }

func (e *Engine) feeBps() (uint64, error) {
	raw, ok, err := e.state.Get(feeBpsKey())
	if err != nil || !ok {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (e *Engine) putFeeBps(bps uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bps)
	return e.state.Put(feeBpsKey(), buf[:])
}

func (e *Engine) feePool() (*uint256.Int, error) {
	raw, ok, err := e.state.Get(feePoolKey())
	if err != nil {
		return nil, err
	}
	pool := new(uint256.Int)
	if ok {
		pool.SetBytes(raw)
	}
	return pool, nil
}

func (e *Engine) putFeePool(pool *uint256.Int) error {
	if pool.IsZero() {
		return e.state.Delete(feePoolKey())
	}
	return e.state.Put(feePoolKey(), pool.Bytes())
}

func (e *Engine) stablecoinAddress() (ethcommon.Address, error) {
	raw, ok, err := e.state.Get(stablecoinKey())
	if err != nil || !ok {
		return ethcommon.Address{}, err
	}
	return ethcommon.BytesToAddress(raw), nil
}

// token resolves the active stablecoin ledger.
func (e *Engine) token() (Stablecoin, error) {
	addr, err := e.stablecoinAddress()
	if err != nil {
		return nil, err
	}
	if addr == (ethcommon.Address{}) || e.tokens == nil {
		return nil, ErrUnknownStablecoin
	}
	return e.tokens.ResolveStablecoin(addr)
}

// Binding records the database addresses accepted by SetDatabaseAddresses.
type Binding struct {
	Users  ethcommon.Address
	Songs  ethcommon.Address
	Albums ethcommon.Address
	Splits ethcommon.Address
}

func (e *Engine) loadBinding() (*Binding, error) {
	var b Binding
	ok, err := e.state.GetRLP(bindingKey(), &b)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

// Migration records the successor chosen by MigrateOrchestrator.
type Migration struct {
	NewOrchestrator ethcommon.Address
	FeeRecipient    ethcommon.Address
	At              uint64
}

func (e *Engine) loadMigration() (*Migration, error) {
	var m Migration
	ok, err := e.state.GetRLP(migrationKey(), &m)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

// SetDatabaseAddresses activates the orchestrator over the four databases.
// Each address must match the store handed to New. It succeeds only once.
func (e *Engine) SetDatabaseAddresses(caller ethcommon.Address, binding Binding) error {
	return e.mutate("setDatabaseAddresses", func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		existing, err := e.loadBinding()
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDatabasesAlreadySet
		}
		if e.stores.Users == nil || binding.Users != e.stores.Users.Address() ||
			e.stores.Songs == nil || binding.Songs != e.stores.Songs.Address() ||
			e.stores.Albums == nil || binding.Albums != e.stores.Albums.Address() ||
			e.stores.Splits == nil || binding.Splits != e.stores.Splits.Address() {
			return ErrUnknownDatabase
		}
		if err := e.state.PutRLP(bindingKey(), &binding); err != nil {
			return err
		}
		e.emit(databasesSetEvent(binding))
		return nil
	})
}

// BindingOf returns the addresses of the stores handed to New, suitable for
// SetDatabaseAddresses.
func (s Stores) BindingOf() Binding {
	var b Binding
	if s.Users != nil {
		b.Users = s.Users.Address()
	}
	if s.Songs != nil {
		b.Songs = s.Songs.Address()
	}
	if s.Albums != nil {
		b.Albums = s.Albums.Address()
	}
	if s.Splits != nil {
		b.Splits = s.Splits.Address()
	}
	return b
}

// eventBuffer holds the events and commit hooks of the running call.
type eventBuffer struct {
	pending []events.Event
	hooks   []func()
	sink    events.Emitter
}

func (b *eventBuffer) Emit(evt events.Event) { b.pending = append(b.pending, evt) }

func (b *eventBuffer) onCommit(fn func()) { b.hooks = append(b.hooks, fn) }

func (b *eventBuffer) flush() {
	pending, hooks := b.pending, b.hooks
	b.discard()
	for _, evt := range pending {
		b.sink.Emit(evt)
	}
	for _, fn := range hooks {
		fn()
	}
}

func (b *eventBuffer) discard() {
	b.pending = nil
	b.hooks = nil
}
