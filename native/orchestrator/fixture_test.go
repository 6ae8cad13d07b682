package orchestrator

import (
	"sync"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"musicchain/core/events"
	"musicchain/core/state"
	"musicchain/native/albums"
	"musicchain/native/songs"
	"musicchain/native/splits"
	"musicchain/native/stablecoin"
	"musicchain/native/users"
	"musicchain/storage"
)

var (
	orchestratorAddr = ethcommon.HexToAddress("0x0C0C")
	adminAddr        = ethcommon.HexToAddress("0xAD")
	tokenAddr        = ethcommon.HexToAddress("0x05DC")
	nextTokenAddr    = ethcommon.HexToAddress("0x05DD")
	listenerAddr     = ethcommon.HexToAddress("0x1001")
	artistAddr       = ethcommon.HexToAddress("0xA001")
	collabAddr       = ethcommon.HexToAddress("0xA002")
)

type fixture struct {
	t       *testing.T
	engine  *Engine
	state   *state.Manager
	token   *stablecoin.Token
	tokens  *stablecoin.Registry
	stores  Stores
	rec     *events.Recorder
	metrics *recordingMetrics
	now     int64
}

type recordingMetrics struct {
	mu      sync.Mutex
	ops     map[string]int
	failed  map[string]int
	custody map[string]uint64
	pool    uint64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[string]int{}, failed: map[string]int{}, custody: map[string]uint64{}}
}

func (m *recordingMetrics) ObserveOperation(op string, err error, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed[op]++
		return
	}
	m.ops[op]++
}

func (m *recordingMetrics) SetFeePool(amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool = amount.Uint64()
}

func (m *recordingMetrics) ObserveCustody(direction string, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custody[direction] += amount.Uint64()
}

func newUnboundFixture(t *testing.T, feeBps uint64) *fixture {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	userStore, err := users.NewStore(st, ethcommon.HexToAddress("0x5101"), orchestratorAddr)
	require.NoError(t, err)
	songStore, err := songs.NewStore(st, ethcommon.HexToAddress("0x5102"), orchestratorAddr)
	require.NoError(t, err)
	albumStore, err := albums.NewStore(st, ethcommon.HexToAddress("0x5103"), orchestratorAddr)
	require.NoError(t, err)
	splitStore, err := splits.NewStore(st, ethcommon.HexToAddress("0x5104"), orchestratorAddr)
	require.NoError(t, err)
	stores := Stores{Users: userStore, Songs: songStore, Albums: albumStore, Splits: splitStore}

	token := stablecoin.NewToken(st, tokenAddr, "USDC", 6)
	registry := stablecoin.NewRegistry(token)
	resolver := ResolverFunc(func(addr ethcommon.Address) (Stablecoin, error) {
		resolved, err := registry.Resolve(addr)
		if err != nil {
			return nil, err
		}
		return resolved, nil
	})

	engine, err := New(st, Config{
		Address:               orchestratorAddr,
		Administrator:         adminAddr,
		FeeBps:                feeBps,
		Stablecoin:            tokenAddr,
		StablecoinChangeDelay: time.Hour,
	}, stores, resolver)
	require.NoError(t, err)

	f := &fixture{t: t, engine: engine, state: st, token: token, tokens: registry, stores: stores, rec: &events.Recorder{}, metrics: newRecordingMetrics(), now: 1_000}
	engine.SetEmitter(f.rec)
	engine.SetMetrics(f.metrics)
	engine.SetNowFunc(func() int64 { return f.now })
	return f
}

func newFixture(t *testing.T, feeBps uint64) *fixture {
	t.Helper()
	f := newUnboundFixture(t, feeBps)
	require.NoError(t, f.engine.SetDatabaseAddresses(adminAddr, f.stores.BindingOf()))
	f.rec.Reset()
	return f
}

func (f *fixture) register(addr ethcommon.Address, name string) uint64 {
	f.t.Helper()
	id, err := f.engine.Register(addr, name, "ipfs://"+name)
	require.NoError(f.t, err)
	return id
}

// fund mints amount to addr, approves the orchestrator and deposits it.
func (f *fixture) fund(addr ethcommon.Address, userID uint64, amount uint64) {
	f.t.Helper()
	require.NoError(f.t, f.token.Mint(addr, uint256.NewInt(amount)))
	require.NoError(f.t, f.token.Approve(addr, orchestratorAddr, uint256.NewInt(amount)))
	require.NoError(f.t, f.engine.DepositFunds(addr, userID, uint256.NewInt(amount)))
}

// release registers a purchasable song and a single-track album holding it,
// which assigns the song so it can be sold.
func (f *fixture) release(addr ethcommon.Address, artistID uint64, price uint64) uint64 {
	f.t.Helper()
	songID, err := f.engine.RegisterSong(addr, artistID, SongParams{
		Title:       "Track",
		MediaURI:    "ipfs://media",
		Purchasable: true,
		NetPrice:    uint256.NewInt(price),
	})
	require.NoError(f.t, err)
	_, err = f.engine.RegisterAlbum(addr, artistID, AlbumParams{
		Title:       "Single",
		SongIDs:     []uint64{songID},
		Purchasable: false,
	})
	require.NoError(f.t, err)
	return songID
}

func (f *fixture) user(id uint64) *users.User {
	f.t.Helper()
	u, err := f.engine.GetUser(id)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) balance(id uint64) uint64 {
	f.t.Helper()
	return f.user(id).Balance.Uint64()
}

func (f *fixture) pool() uint64 {
	f.t.Helper()
	pool, err := f.engine.GetAmountCollectedInFees(adminAddr)
	require.NoError(f.t, err)
	return pool.Uint64()
}

func (f *fixture) tokenBalance(addr ethcommon.Address) uint64 {
	f.t.Helper()
	amount, err := f.token.BalanceOf(addr)
	require.NoError(f.t, err)
	return amount.Uint64()
}
