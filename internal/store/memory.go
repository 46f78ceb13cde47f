package store

import (
	"sync"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

// MemoryBackend keeps the wallet as an encoded snapshot in process memory.
//
// The snapshot slice is never mutated after it is stored, so Load can decode
// it outside the lock and always sees a complete old or new value.
type MemoryBackend struct {
	codec *codec.Codec

	mu       sync.RWMutex
	snapshot []byte
}

// NewMemoryBackend returns an empty in-memory store.
func NewMemoryBackend(c *codec.Codec) *MemoryBackend {
	return &MemoryBackend{codec: orDefaultCodec(c)}
}

// Kind returns KindMemory.
func (m *MemoryBackend) Kind() Kind { return KindMemory }

// Save implements Store.
func (m *MemoryBackend) Save(w wallet.Wallet, overwrite bool) (bool, error) {
	if isNil(w) {
		return false, ErrNilWallet
	}
	data, err := m.codec.Encode(w)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot != nil && !overwrite {
		return false, nil
	}
	m.snapshot = data
	return true, nil
}

// Load implements Store.
func (m *MemoryBackend) Load() (wallet.Wallet, bool, error) {
	m.mu.RLock()
	data := m.snapshot
	m.mu.RUnlock()

	if data == nil {
		return nil, false, nil
	}
	w, err := m.codec.Decode(data)
	if err != nil {
		return nil, false, decodeFailure("load", "memory", err)
	}
	return w, true, nil
}

// Close is a no-op; the snapshot is kept until the backend is collected.
func (m *MemoryBackend) Close() error { return nil }
