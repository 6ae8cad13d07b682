package core

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"musicchain/config"
	"musicchain/core/events"
	"musicchain/core/genesis"
	"musicchain/native/orchestrator"
	"musicchain/native/stablecoin"
	"musicchain/storage"
)

var listener = ethcommon.HexToAddress("0x1001")

func testGenesis(t *testing.T) *genesis.Document {
	t.Helper()
	doc, err := genesis.Parse([]byte(`allocations:
  - address: "0x0000000000000000000000000000000000001001"
    balance: "10000"
    allowance: unlimited
`))
	require.NoError(t, err)
	return doc
}

func TestNewNodeBindsAndAppliesGenesisOnce(t *testing.T) {
	db := storage.NewMemDB()
	cfg := config.Default()
	rec := &events.Recorder{}

	node, err := NewNode(db, cfg, Options{Genesis: testGenesis(t), Emitter: rec})
	require.NoError(t, err)

	binding, err := node.Orchestrator().GetDatabaseAddresses()
	require.NoError(t, err)
	require.NotNil(t, binding)
	require.Equal(t, config.MustAddress(cfg.Databases.Splits), binding.Splits)
	require.Len(t, rec.OfType(orchestrator.EventTypeDatabasesSet), 1)
	require.Len(t, rec.OfType(stablecoin.EventTypeMint), 1)

	balance, err := node.Stablecoin().BalanceOf(listener)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(10_000), balance)

	// Restarting over the same database neither re-mints nor re-binds.
	restarted, err := NewNode(db, cfg, Options{Genesis: testGenesis(t), Emitter: rec})
	require.NoError(t, err)
	balance, err = restarted.Stablecoin().BalanceOf(listener)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(10_000), balance)
	require.Len(t, rec.OfType(orchestrator.EventTypeDatabasesSet), 1)
}

func TestNodeDepositFlow(t *testing.T) {
	node, err := NewNode(storage.NewMemDB(), config.Default(), Options{Genesis: testGenesis(t)})
	require.NoError(t, err)
	engine := node.Orchestrator()

	id, err := engine.Register(listener, "listener", "ipfs://listener")
	require.NoError(t, err)
	require.NoError(t, engine.DepositFunds(listener, id, uint256.NewInt(4_000)))

	user, err := engine.GetUser(id)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(4_000), user.Balance)

	custody, err := node.Stablecoin().BalanceOf(engine.Address())
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(4_000), custody)
}

func TestNodeStablecoinRotation(t *testing.T) {
	cfg := config.Default()
	cfg.Stablecoins = []config.Stablecoin{{Address: "0x00000000000000000000000000000000000005dd", Symbol: "USDT", Decimals: 6}}
	node, err := NewNode(storage.NewMemDB(), cfg, Options{Genesis: testGenesis(t)})
	require.NoError(t, err)
	engine := node.Orchestrator()
	admin := config.MustAddress(cfg.Administrator)
	now := int64(1_000)
	engine.SetNowFunc(func() int64 { return now })

	err = engine.ProposeStablecoinAddressChange(admin, ethcommon.HexToAddress("0x05de"))
	require.True(t, errors.Is(err, orchestrator.ErrUnknownStablecoin))

	next := ethcommon.HexToAddress("0x05dd")
	require.NoError(t, engine.ProposeStablecoinAddressChange(admin, next))
	now += int64(cfg.StablecoinChangeDelay.Duration / time.Second)
	require.NoError(t, engine.ExecuteStablecoinAddressChange(admin))

	info, err := engine.GetStablecoinInfo()
	require.NoError(t, err)
	require.Equal(t, next, info.Address)
	require.Equal(t, "USDT", info.Symbol)
	require.Equal(t, next, node.Stablecoin().Address())

	// Deposits now settle in the rotated-to token.
	usdt, err := node.Stablecoins().Resolve(next)
	require.NoError(t, err)
	require.NoError(t, usdt.Mint(listener, uint256.NewInt(500)))
	require.NoError(t, usdt.Approve(listener, engine.Address(), uint256.NewInt(500)))
	id, err := engine.Register(listener, "listener", "")
	require.NoError(t, err)
	require.NoError(t, engine.DepositFunds(listener, id, uint256.NewInt(500)))
	custody, err := usdt.BalanceOf(engine.Address())
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(500), custody)
}

func TestNewNodeRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FeeBps = 20_000
	_, err := NewNode(storage.NewMemDB(), cfg, Options{})
	require.Error(t, err)
}

func TestOpenNodePersists(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")

	node, err := OpenNode(cfg, Options{Genesis: testGenesis(t)})
	require.NoError(t, err)
	id, err := node.Orchestrator().Register(listener, "listener", "")
	require.NoError(t, err)
	require.NoError(t, node.Close())

	reopened, err := OpenNode(cfg, Options{})
	require.NoError(t, err)
	defer reopened.Close()
	user, err := reopened.Orchestrator().GetUser(id)
	require.NoError(t, err)
	require.Equal(t, "listener", user.Name)
}
