package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"musicchain/storage"
)

// Manager provides keyed access to ledger state on top of a storage backend.
// Writes issued inside Atomic are journaled and reach the database as a single
// batch only when the enclosing function succeeds.
//
// Manager is not safe for concurrent use; callers serialize access.
type Manager struct {
	db      storage.Database
	journal *journal
}

type journal struct {
	dirty map[string][]byte // nil value marks a deletion
	order []string
}

func newJournal() *journal {
	return &journal{dirty: make(map[string][]byte)}
}

func (j *journal) set(key string, value []byte) {
	if _, seen := j.dirty[key]; !seen {
		j.order = append(j.order, key)
	}
	j.dirty[key] = value
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Database exposes the backing store.
func (m *Manager) Database() storage.Database { return m.db }

// InTransaction reports whether an Atomic call is in progress.
func (m *Manager) InTransaction() bool { return m.journal != nil }

// Atomic runs fn with a write journal. On success the journal is flushed as one
// batch; on error (or panic) every write made by fn is discarded. Nested calls
// join the outermost journal.
func (m *Manager) Atomic(fn func() error) (err error) {
	if m.journal != nil {
		return fn()
	}
	m.journal = newJournal()
	defer func() {
		pending := m.journal
		m.journal = nil
		if r := recover(); r != nil {
			// A panicking fn must not commit.
			panic(r)
		}
		if err != nil {
			return
		}
		batch := storage.NewBatch()
		for _, key := range pending.order {
			value := pending.dirty[key]
			if value == nil {
				batch.Delete([]byte(key))
				continue
			}
			batch.Put([]byte(key), value)
		}
		if werr := m.db.Write(batch); werr != nil {
			err = fmt.Errorf("state: commit: %w", werr)
		}
	}()
	return fn()
}

// Get returns the raw value for key. Missing keys yield (nil, false, nil).
func (m *Manager) Get(key []byte) ([]byte, bool, error) {
	if m.journal != nil {
		if value, ok := m.journal.dirty[string(key)]; ok {
			if value == nil {
				return nil, false, nil
			}
			return append([]byte(nil), value...), true, nil
		}
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Has reports whether key holds a value.
func (m *Manager) Has(key []byte) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

// Put stores value under key.
func (m *Manager) Put(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("state: key must not be empty")
	}
	if value == nil {
		value = []byte{}
	}
	if m.journal != nil {
		m.journal.set(string(key), append([]byte(nil), value...))
		return nil
	}
	return m.db.Put(key, value)
}

// Delete removes key.
func (m *Manager) Delete(key []byte) error {
	if m.journal != nil {
		m.journal.set(string(key), nil)
		return nil
	}
	return m.db.Delete(key)
}

// GetRLP decodes the value under key into out.
func (m *Manager) GetRLP(key []byte, out interface{}) (bool, error) {
	data, ok, err := m.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// PutRLP encodes value and stores it under key.
func (m *Manager) PutRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.Put(key, encoded)
}
