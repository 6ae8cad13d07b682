package stablecoin

import (
	"errors"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"musicchain/core/events"
	"musicchain/core/state"
	"musicchain/storage"
)

var (
	tokenAddr = ethcommon.HexToAddress("0x05DC")
	alice     = ethcommon.HexToAddress("0xA11CE")
	bob       = ethcommon.HexToAddress("0xB0B")
	spender   = ethcommon.HexToAddress("0x5E17")
)

func newToken(t *testing.T) (*Token, *state.Manager) {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	return NewToken(st, tokenAddr, " USDC ", 6), st
}

func balance(t *testing.T, token *Token, holder ethcommon.Address) uint64 {
	t.Helper()
	amount, err := token.BalanceOf(holder)
	require.NoError(t, err)
	return amount.Uint64()
}

func TestTransfer(t *testing.T) {
	token, _ := newToken(t)
	rec := &events.Recorder{}
	token.SetEmitter(rec)
	require.Equal(t, "USDC", token.Symbol())
	require.EqualValues(t, 6, token.Decimals())

	require.NoError(t, token.Mint(alice, uint256.NewInt(100)))
	require.NoError(t, token.Transfer(alice, bob, uint256.NewInt(40)))
	require.EqualValues(t, 60, balance(t, token, alice))
	require.EqualValues(t, 40, balance(t, token, bob))

	err := token.Transfer(alice, bob, uint256.NewInt(61))
	require.True(t, errors.Is(err, ErrInsufficientBalance))
	require.EqualValues(t, 60, balance(t, token, alice))

	require.NoError(t, token.Transfer(alice, alice, uint256.NewInt(60)))
	require.EqualValues(t, 60, balance(t, token, alice))
	require.True(t, errors.Is(token.Transfer(alice, ethcommon.Address{}, uint256.NewInt(1)), ErrZeroAddress))
	require.Len(t, rec.OfType(EventTypeTransfer), 2)
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	token, _ := newToken(t)
	require.NoError(t, token.Mint(alice, uint256.NewInt(100)))

	err := token.TransferFrom(spender, alice, bob, uint256.NewInt(1))
	require.True(t, errors.Is(err, ErrInsufficientAllowance))

	require.NoError(t, token.Approve(alice, spender, uint256.NewInt(70)))
	require.NoError(t, token.TransferFrom(spender, alice, bob, uint256.NewInt(50)))
	allowance, err := token.Allowance(alice, spender)
	require.NoError(t, err)
	require.EqualValues(t, 20, allowance.Uint64())

	require.NoError(t, token.Approve(alice, spender, uint256.NewInt(500)))
	err = token.TransferFrom(spender, alice, bob, uint256.NewInt(51))
	require.True(t, errors.Is(err, ErrInsufficientBalance))
	allowance, err = token.Allowance(alice, spender)
	require.NoError(t, err)
	require.EqualValues(t, 500, allowance.Uint64())
}

func TestTransferRollsBackWithAtomic(t *testing.T) {
	token, st := newToken(t)
	require.NoError(t, token.Mint(alice, uint256.NewInt(10)))

	boom := errors.New("boom")
	err := st.Atomic(func() error {
		if err := token.Transfer(alice, bob, uint256.NewInt(10)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 10, balance(t, token, alice))
	require.EqualValues(t, 0, balance(t, token, bob))
}

func TestRegistry(t *testing.T) {
	token, _ := newToken(t)
	registry := NewRegistry(token, nil)
	got, err := registry.Resolve(tokenAddr)
	require.NoError(t, err)
	require.Same(t, token, got)

	_, err = registry.Resolve(bob)
	require.True(t, errors.Is(err, ErrUnknownToken))
}
