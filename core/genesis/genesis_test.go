package genesis

import (
	"os"
	"path/filepath"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"musicchain/core/state"
	"musicchain/native/stablecoin"
	"musicchain/storage"
)

const sample = `allocations:
  - address: "0x0000000000000000000000000000000000001001"
    balance: "5000000"
    allowance: unlimited
  - address: "0x000000000000000000000000000000000000a001"
    balance: "250"
    allowance: "100"
  - address: "0x000000000000000000000000000000000000a002"
    balance: "0"
`

var orchestrator = ethcommon.HexToAddress("0x0c0c")

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Allocations, 3)
	require.Equal(t, ethcommon.HexToAddress("0x1001"), doc.Allocations[0].Holder())

	st := state.NewManager(storage.NewMemDB())
	token := stablecoin.NewToken(st, ethcommon.HexToAddress("0x05dc"), "USDC", 6)

	applied, err := doc.Apply(st, token, orchestrator)
	require.NoError(t, err)
	require.True(t, applied)

	balance, err := token.BalanceOf(ethcommon.HexToAddress("0x1001"))
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(5_000_000), balance)

	allowance, err := token.Allowance(ethcommon.HexToAddress("0x1001"), orchestrator)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).SetAllOne(), allowance)

	allowance, err = token.Allowance(ethcommon.HexToAddress("0xa001"), orchestrator)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(100), allowance)

	allowance, err = token.Allowance(ethcommon.HexToAddress("0xa002"), orchestrator)
	require.NoError(t, err)
	require.True(t, allowance.IsZero())

	// A second start leaves balances untouched.
	applied, err = doc.Apply(st, token, orchestrator)
	require.NoError(t, err)
	require.False(t, applied)
	balance, err = token.BalanceOf(ethcommon.HexToAddress("0x1001"))
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(5_000_000), balance)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"address":   "allocations:\n  - address: nope\n    balance: \"1\"\n",
		"zero":      "allocations:\n  - address: \"0x0000000000000000000000000000000000000000\"\n",
		"amount":    "allocations:\n  - address: \"0x0000000000000000000000000000000000000001\"\n    balance: \"-4\"\n",
		"allowance": "allocations:\n  - address: \"0x0000000000000000000000000000000000000001\"\n    allowance: \"lots\"\n",
		"duplicate": "allocations:\n  - address: \"0x0000000000000000000000000000000000000001\"\n  - address: \"0x0000000000000000000000000000000000000001\"\n",
		"unknown":   "validators: []\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestLoadRequiresPath(t *testing.T) {
	_, err := Load(" ")
	require.Error(t, err)
}
