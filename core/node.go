package core

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"musicchain/config"
	"musicchain/core/events"
	"musicchain/core/genesis"
	"musicchain/core/state"
	"musicchain/native/albums"
	"musicchain/native/orchestrator"
	"musicchain/native/songs"
	"musicchain/native/splits"
	"musicchain/native/stablecoin"
	"musicchain/native/users"
	"musicchain/storage"
)

// Node wires the marketplace databases, the stablecoin and the orchestrator
// over one state database.
type Node struct {
	db     storage.Database
	state  *state.Manager
	engine *orchestrator.Engine
	token  *stablecoin.Token
	tokens *stablecoin.Registry
	stores orchestrator.Stores
	logger *slog.Logger
}

// Options customise NewNode.
type Options struct {
	Logger  *slog.Logger
	Metrics orchestrator.Metrics
	// Emitter receives committed events in addition to the log.
	Emitter events.Emitter
	// Genesis is applied once, on the first start of the database.
	Genesis *genesis.Document
}

// OpenNode opens the LevelDB database under cfg.DataDir and builds the node.
func OpenNode(cfg *config.Config, opts Options) (*Node, error) {
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "marketdata"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.Genesis == nil && cfg.GenesisFile != "" {
		doc, err := genesis.Load(cfg.GenesisFile)
		if err != nil {
			db.Close()
			return nil, err
		}
		opts.Genesis = doc
	}
	node, err := NewNode(db, cfg, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return node, nil
}

// NewNode builds the marketplace over db. On first start it applies the
// genesis allocations and binds the four databases to the orchestrator.
func NewNode(db storage.Database, cfg *config.Config, opts Options) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	orchestratorAddr := config.MustAddress(cfg.OrchestratorAddress)
	admin := config.MustAddress(cfg.Administrator)
	st := state.NewManager(db)

	stores, err := openStores(st, cfg.Databases, orchestratorAddr)
	if err != nil {
		return nil, err
	}

	token := newToken(st, cfg.Stablecoin)
	registry := stablecoin.NewRegistry(token)
	extra := make([]*stablecoin.Token, 0, len(cfg.Stablecoins))
	for _, coin := range cfg.Stablecoins {
		t := newToken(st, coin)
		registry.Register(t)
		extra = append(extra, t)
	}
	resolver := orchestrator.ResolverFunc(func(addr ethcommon.Address) (orchestrator.Stablecoin, error) {
		resolved, err := registry.Resolve(addr)
		if err != nil {
			return nil, err
		}
		return resolved, nil
	})

	engine, err := orchestrator.New(st, orchestrator.Config{
		Address:               orchestratorAddr,
		Administrator:         admin,
		FeeBps:                cfg.FeeBps,
		Stablecoin:            token.Address(),
		StablecoinChangeDelay: cfg.StablecoinChangeDelay.Duration,
	}, stores, resolver)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	engine.SetLogger(logger)
	sink := events.Multi{events.LogEmitter{Logger: logger.With("component", "events")}, opts.Emitter}
	engine.SetEmitter(sink)
	if opts.Metrics != nil {
		engine.SetMetrics(opts.Metrics)
	}

	n := &Node{db: db, state: st, engine: engine, token: token, tokens: registry, stores: stores, logger: logger}

	if opts.Genesis != nil {
		token.SetEmitter(sink)
		applied, err := opts.Genesis.Apply(st, token, orchestratorAddr)
		if err != nil {
			return nil, fmt.Errorf("apply genesis: %w", err)
		}
		if applied {
			logger.Info("genesis applied", slog.Int("allocations", len(opts.Genesis.Allocations)))
		}
	}
	// Token movements made by entry points commit with them.
	token.SetEmitter(engine.Events())
	for _, t := range extra {
		t.SetEmitter(engine.Events())
	}
	if err := n.bind(admin); err != nil {
		return nil, err
	}
	return n, nil
}

func newToken(st *state.Manager, coin config.Stablecoin) *stablecoin.Token {
	return stablecoin.NewToken(st, config.MustAddress(coin.Address), coin.Symbol, coin.Decimals)
}

func openStores(st *state.Manager, dbs config.Databases, coordinator ethcommon.Address) (orchestrator.Stores, error) {
	var stores orchestrator.Stores
	var err error
	if stores.Users, err = users.NewStore(st, config.MustAddress(dbs.Users), coordinator); err != nil {
		return stores, fmt.Errorf("user database: %w", err)
	}
	if stores.Songs, err = songs.NewStore(st, config.MustAddress(dbs.Songs), coordinator); err != nil {
		return stores, fmt.Errorf("song database: %w", err)
	}
	if stores.Albums, err = albums.NewStore(st, config.MustAddress(dbs.Albums), coordinator); err != nil {
		return stores, fmt.Errorf("album database: %w", err)
	}
	if stores.Splits, err = splits.NewStore(st, config.MustAddress(dbs.Splits), coordinator); err != nil {
		return stores, fmt.Errorf("splitter database: %w", err)
	}
	return stores, nil
}

func (n *Node) bind(admin ethcommon.Address) error {
	existing, err := n.engine.GetDatabaseAddresses()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	err = n.engine.SetDatabaseAddresses(admin, n.stores.BindingOf())
	if errors.Is(err, orchestrator.ErrMigrated) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bind databases: %w", err)
	}
	n.logger.Info("databases bound", slog.String("orchestrator", n.engine.Address().Hex()))
	return nil
}

// Orchestrator returns the marketplace entry points.
func (n *Node) Orchestrator() *orchestrator.Engine { return n.engine }

// Stablecoin returns the token the orchestrator currently settles in. After a
// stablecoin change this is the rotated-to token.
func (n *Node) Stablecoin() *stablecoin.Token {
	addr, err := n.engine.GetStablecoinAddress()
	if err != nil {
		return n.token
	}
	if active, err := n.tokens.Resolve(addr); err == nil {
		return active
	}
	return n.token
}

// Stablecoins resolves every token the node was configured with.
func (n *Node) Stablecoins() *stablecoin.Registry { return n.tokens }

// State returns the shared state manager.
func (n *Node) State() *state.Manager { return n.state }

// Close releases the underlying database.
func (n *Node) Close() error {
	if n == nil || n.db == nil {
		return nil
	}
	return n.db.Close()
}
