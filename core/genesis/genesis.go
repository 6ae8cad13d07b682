package genesis

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"musicchain/core/state"
	"musicchain/native/stablecoin"
)

// Unlimited is accepted as an allowance value and approves the maximum amount.
const Unlimited = "unlimited"

var appliedKey = state.Key("genesis", "applied")

// Document is the YAML genesis file of a marketplace node.
type Document struct {
	Allocations []Allocation `yaml:"allocations"`
}

// Allocation mints Balance to Address and, when set, approves the
// orchestrator for Allowance so the holder can deposit right away.
type Allocation struct {
	Address   string `yaml:"address"`
	Balance   string `yaml:"balance"`
	Allowance string `yaml:"allowance,omitempty"`

	holder    ethcommon.Address
	balance   *uint256.Int
	allowance *uint256.Int
}

// Load reads and validates a genesis document.
func Load(path string) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a genesis document, rejecting unknown keys.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	seen := make(map[ethcommon.Address]struct{}, len(d.Allocations))
	for i := range d.Allocations {
		alloc := &d.Allocations[i]
		trimmed := strings.TrimSpace(alloc.Address)
		if !ethcommon.IsHexAddress(trimmed) {
			return fmt.Errorf("allocations[%d]: invalid address %q", i, alloc.Address)
		}
		alloc.holder = ethcommon.HexToAddress(trimmed)
		if alloc.holder == (ethcommon.Address{}) {
			return fmt.Errorf("allocations[%d]: zero address", i)
		}
		if _, dup := seen[alloc.holder]; dup {
			return fmt.Errorf("allocations[%d]: duplicate address %s", i, alloc.holder.Hex())
		}
		seen[alloc.holder] = struct{}{}

		balance, err := parseAmount(alloc.Balance)
		if err != nil {
			return fmt.Errorf("allocations[%d].balance: %w", i, err)
		}
		alloc.balance = balance
		switch value := strings.TrimSpace(alloc.Allowance); strings.ToLower(value) {
		case "":
		case Unlimited:
			alloc.allowance = new(uint256.Int).SetAllOne()
		default:
			allowance, err := parseAmount(value)
			if err != nil {
				return fmt.Errorf("allocations[%d].allowance: %w", i, err)
			}
			alloc.allowance = allowance
		}
	}
	return nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}

// Holder returns the parsed allocation address.
func (a Allocation) Holder() ethcommon.Address { return a.holder }

// Applied reports whether a genesis document was already applied to st.
func Applied(st *state.Manager) (bool, error) {
	return st.Has(appliedKey)
}

// Apply mints every allocation on token and grants the configured allowances
// to orchestrator. It runs once per database; later calls are no-ops that
// report false.
func (d *Document) Apply(st *state.Manager, token *stablecoin.Token, orchestrator ethcommon.Address) (bool, error) {
	if token == nil {
		return false, fmt.Errorf("genesis: token must not be nil")
	}
	applied := false
	err := st.Atomic(func() error {
		done, err := Applied(st)
		if err != nil || done {
			return err
		}
		allocs := append([]Allocation(nil), d.Allocations...)
		sort.Slice(allocs, func(i, j int) bool {
			return bytes.Compare(allocs[i].holder[:], allocs[j].holder[:]) < 0
		})
		for _, alloc := range allocs {
			if !alloc.balance.IsZero() {
				if err := token.Mint(alloc.holder, alloc.balance); err != nil {
					return fmt.Errorf("mint %s: %w", alloc.holder.Hex(), err)
				}
			}
			if alloc.allowance != nil {
				if err := token.Approve(alloc.holder, orchestrator, alloc.allowance); err != nil {
					return fmt.Errorf("approve %s: %w", alloc.holder.Hex(), err)
				}
			}
		}
		applied = true
		return st.Put(appliedKey, []byte{1})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
