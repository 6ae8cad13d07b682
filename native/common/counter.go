package common

import (
	"encoding/binary"

	"musicchain/core/state"
)

// Counter issues strictly increasing identifiers starting at 1.
type Counter struct {
	state *state.Manager
	key   []byte
}

// NewCounter binds the id counter of namespace.
func NewCounter(st *state.Manager, namespace string) *Counter {
	return &Counter{state: st, key: state.Key(namespace, "next-id")}
}

// Current returns the last issued id, or 0 when none has been issued.
func (c *Counter) Current() (uint64, error) {
	raw, ok, err := c.state.Get(c.key)
	if err != nil || !ok {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Next issues the next id.
func (c *Counter) Next() (uint64, error) {
	current, err := c.Current()
	if err != nil {
		return 0, err
	}
	next := current + 1
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	if err := c.state.Put(c.key, buf[:]); err != nil {
		return 0, err
	}
	return next, nil
}

// Exists reports whether id has been issued.
func (c *Counter) Exists(id uint64) (bool, error) {
	if id == 0 {
		return false, nil
	}
	current, err := c.Current()
	if err != nil {
		return false, err
	}
	return id <= current, nil
}
