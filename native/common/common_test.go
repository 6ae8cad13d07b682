package common

import (
	"errors"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"musicchain/core/state"
	"musicchain/storage"
)

func TestCounterStartsAtOne(t *testing.T) {
	c := NewCounter(state.NewManager(storage.NewMemDB()), "songs")
	ok, err := c.Exists(1)
	require.NoError(t, err)
	require.False(t, ok)

	for want := uint64(1); want <= 3; want++ {
		got, err := c.Next()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	ok, err = c.Exists(3)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.Exists(0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAccessTransfer(t *testing.T) {
	st := state.NewManager(storage.NewMemDB())
	first := ethcommon.HexToAddress("0x01")
	second := ethcommon.HexToAddress("0x02")

	_, err := NewAccess(st, "users", ethcommon.Address{})
	require.True(t, errors.Is(err, ErrZeroCoordinator))

	access, err := NewAccess(st, "users", first)
	require.NoError(t, err)
	require.NoError(t, access.Require(first))
	require.True(t, errors.Is(access.Require(second), ErrNotCoordinator))

	require.True(t, errors.Is(access.Transfer(second, second), ErrNotCoordinator))
	require.True(t, errors.Is(access.Transfer(first, ethcommon.Address{}), ErrZeroCoordinator))
	require.NoError(t, access.Transfer(first, second))
	require.True(t, errors.Is(access.Require(first), ErrNotCoordinator))

	// Reopening keeps the persisted coordinator.
	reopened, err := NewAccess(st, "users", first)
	require.NoError(t, err)
	current, err := reopened.Coordinator()
	require.NoError(t, err)
	require.Equal(t, second, current)
}
