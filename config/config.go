package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Config is the node configuration of musicd and musicctl.
type Config struct {
	DataDir               string     `toml:"DataDir"`
	GenesisFile           string     `toml:"GenesisFile"`
	Administrator         string     `toml:"Administrator"`
	OrchestratorAddress   string     `toml:"OrchestratorAddress"`
	FeeBps                uint64     `toml:"FeeBps"`
	StablecoinChangeDelay Duration   `toml:"StablecoinChangeDelay"`
	Databases             Databases  `toml:"databases"`
	Stablecoin            Stablecoin `toml:"stablecoin"`
	// Stablecoins lists further tokens a stablecoin change may rotate to.
	Stablecoins []Stablecoin `toml:"stablecoins,omitempty"`
	Logging               Logging    `toml:"logging"`
	API                   API        `toml:"api"`
}

// Databases names the addresses of the four marketplace stores.
type Databases struct {
	Users  string `toml:"Users"`
	Songs  string `toml:"Songs"`
	Albums string `toml:"Albums"`
	Splits string `toml:"Splits"`
}

// Stablecoin describes the token the marketplace settles in.
type Stablecoin struct {
	Address  string `toml:"Address"`
	Symbol   string `toml:"Symbol"`
	Decimals uint8  `toml:"Decimals"`
}

// Logging configures the structured logger.
type Logging struct {
	Level string `toml:"Level"`
	Env   string `toml:"Env"`
	// File enables rotated file output in addition to stdout.
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
}

// API configures the read-only HTTP surface.
type API struct {
	ListenAddress     string `toml:"ListenAddress"`
	RequestsPerMinute int    `toml:"RequestsPerMinute"`
	Burst             int    `toml:"Burst"`
}

// Duration decodes TOML strings such as "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %s in %s", undecoded[0].String(), path)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		DataDir:               "./music-data",
		Administrator:         "0x00000000000000000000000000000000000000ad",
		OrchestratorAddress:   "0x0000000000000000000000000000000000000c0c",
		FeeBps:                250,
		StablecoinChangeDelay: Duration{24 * time.Hour},
		Databases: Databases{
			Users:  "0x0000000000000000000000000000000000005101",
			Songs:  "0x0000000000000000000000000000000000005102",
			Albums: "0x0000000000000000000000000000000000005103",
			Splits: "0x0000000000000000000000000000000000005104",
		},
		Stablecoin: Stablecoin{
			Address:  "0x00000000000000000000000000000000000005dc",
			Symbol:   "USDC",
			Decimals: 6,
		},
		Logging: Logging{Level: "info", Env: "local", MaxSizeMB: 100, MaxBackups: 5},
		API:     API{ListenAddress: ":8080", RequestsPerMinute: 600, Burst: 60},
	}
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaults.DataDir
	}
	if c.StablecoinChangeDelay.Duration <= 0 {
		c.StablecoinChangeDelay = defaults.StablecoinChangeDelay
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.API.ListenAddress) == "" {
		c.API.ListenAddress = defaults.API.ListenAddress
	}
	if c.API.RequestsPerMinute <= 0 {
		c.API.RequestsPerMinute = defaults.API.RequestsPerMinute
	}
	if c.API.Burst <= 0 {
		c.API.Burst = defaults.API.Burst
	}
}

// Validate checks the fee range and every configured address.
func (c *Config) Validate() error {
	if c.FeeBps > 10_000 {
		return fmt.Errorf("config: FeeBps %d exceeds 10000", c.FeeBps)
	}
	addresses := map[string]string{
		"Administrator":       c.Administrator,
		"OrchestratorAddress": c.OrchestratorAddress,
		"databases.Users":     c.Databases.Users,
		"databases.Songs":     c.Databases.Songs,
		"databases.Albums":    c.Databases.Albums,
		"databases.Splits":    c.Databases.Splits,
		"stablecoin.Address":  c.Stablecoin.Address,
	}
	for field, value := range addresses {
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}
	seen := map[ethcommon.Address]struct{}{MustAddress(c.Stablecoin.Address): {}}
	for i, coin := range c.Stablecoins {
		addr, err := ParseAddress(coin.Address)
		if err != nil {
			return fmt.Errorf("config: stablecoins[%d].Address: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("config: stablecoins[%d]: duplicate token %s", i, addr.Hex())
		}
		seen[addr] = struct{}{}
	}
	return nil
}

// ParseAddress parses a non-zero hex address.
func ParseAddress(raw string) (ethcommon.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !ethcommon.IsHexAddress(trimmed) {
		return ethcommon.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	addr := ethcommon.HexToAddress(trimmed)
	if addr == (ethcommon.Address{}) {
		return ethcommon.Address{}, fmt.Errorf("zero address")
	}
	return addr, nil
}

// MustAddress returns the parsed form of an address Validate accepted.
func MustAddress(raw string) ethcommon.Address {
	addr, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
