package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/store"
	"github.com/roach88/walletstore/internal/wallet"
)

// BackendFactory returns a fresh, empty backend. It should register any
// cleanup with t.Cleanup.
type BackendFactory func(t *testing.T) store.Backend

// RunStoreContract checks the Save/Load behavior every backend must share.
func RunStoreContract(t *testing.T, newBackend BackendFactory) {
	t.Helper()

	t.Run("load on empty store is absent", func(t *testing.T) {
		s := newBackend(t)
		w, ok, err := s.Load()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, w)
	})

	t.Run("fresh save then load", func(t *testing.T) {
		s := newBackend(t)
		want := PlainWallet()

		saved, err := s.Save(want, false)
		require.NoError(t, err)
		assert.True(t, saved)

		got, ok, err := s.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assertWalletEqual(t, want, got)
	})

	t.Run("encrypted wallet keeps seed and ciphertext", func(t *testing.T) {
		s := newBackend(t)
		want := EncryptedWallet()

		saved, err := s.Save(want, false)
		require.NoError(t, err)
		require.True(t, saved)

		got, ok, err := s.Load()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, wallet.KindEncrypted, got.Kind())
		assertWalletEqual(t, want, got)
	})

	t.Run("save without overwrite keeps existing wallet", func(t *testing.T) {
		s := newBackend(t)
		w1 := PlainWallet()
		w2 := PlainWallet()
		w2.Counter = 99

		saved, err := s.Save(w1, false)
		require.NoError(t, err)
		require.True(t, saved)

		saved, err = s.Save(w2, false)
		require.NoError(t, err)
		assert.False(t, saved)

		got, ok, err := s.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assertWalletEqual(t, w1, got)
	})

	t.Run("save with overwrite replaces wallet", func(t *testing.T) {
		s := newBackend(t)
		w1 := PlainWallet()
		w2 := EncryptedWallet()

		_, err := s.Save(w1, false)
		require.NoError(t, err)

		saved, err := s.Save(w2, true)
		require.NoError(t, err)
		assert.True(t, saved)

		got, ok, err := s.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assertWalletEqual(t, w2, got)
	})

	t.Run("version and counter scenario", func(t *testing.T) {
		s := newBackend(t)

		saved, err := s.Save(MinimalPlainWallet(0), false)
		require.NoError(t, err)
		require.True(t, saved)
		requireCounter(t, s, 0)

		saved, err = s.Save(MinimalPlainWallet(2), false)
		require.NoError(t, err)
		require.False(t, saved)
		requireCounter(t, s, 0)

		saved, err = s.Save(MinimalPlainWallet(2), true)
		require.NoError(t, err)
		require.True(t, saved)
		requireCounter(t, s, 2)
	})

	t.Run("unknown fields survive a save", func(t *testing.T) {
		s := newBackend(t)
		c := codec.New()
		decoded, err := c.Decode([]byte(UnknownFieldsDocument))
		require.NoError(t, err)

		_, err = s.Save(decoded, false)
		require.NoError(t, err)

		got, ok, err := s.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assertWalletEqual(t, decoded, got)

		want, err := c.Encode(decoded)
		require.NoError(t, err)
		reencoded, err := c.Encode(got)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(reencoded))
	})

	t.Run("store does not alias saved or loaded values", func(t *testing.T) {
		s := newBackend(t)
		w := PlainWallet()
		_, err := s.Save(w, false)
		require.NoError(t, err)

		w.Counter = 1000
		w.Extension.Set("network", wallet.String("mutated"))

		first, _, err := s.Load()
		require.NoError(t, err)
		assertWalletEqual(t, PlainWallet(), first)

		first.(*wallet.PlainWallet).Identities["alice"].Held[0] = "mutated"
		second, _, err := s.Load()
		require.NoError(t, err)
		assertWalletEqual(t, PlainWallet(), second)
	})

	t.Run("nil wallet is rejected", func(t *testing.T) {
		s := newBackend(t)
		_, err := s.Save(nil, true)
		assert.ErrorIs(t, err, store.ErrNilWallet)

		_, err = s.Save((*wallet.PlainWallet)(nil), true)
		assert.ErrorIs(t, err, store.ErrNilWallet)
	})

	t.Run("unencodable wallet persists nothing", func(t *testing.T) {
		s := newBackend(t)
		w := PlainWallet()
		w.Extension.Set("counter", wallet.Int(7))

		saved, err := s.Save(w, true)
		require.Error(t, err)
		assert.False(t, saved)
		assert.True(t, codec.IsEncodeError(err))
		assert.False(t, store.IsIOFailure(err))

		_, ok, err := s.Load()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("plain wallet with ciphertext keys round-trips", func(t *testing.T) {
		s := newBackend(t)
		w := MinimalPlainWallet(3)
		w.Extension.Set("data", wallet.String("app-payload"))
		w.Extension.Set("iv", wallet.String("x"))

		saved, err := s.Save(w, false)
		require.NoError(t, err)
		require.True(t, saved)

		got, ok, err := s.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assertWalletEqual(t, w, got)
	})

	t.Run("plain wallet that would read back as encrypted is refused", func(t *testing.T) {
		s := newBackend(t)
		_, err := s.Save(PlainWallet(), false)
		require.NoError(t, err)

		w := MinimalPlainWallet(3)
		for _, k := range []string{"enc", "salt", "iv", "data"} {
			w.Extension.Set(k, wallet.String("x"))
		}
		saved, err := s.Save(w, true)
		require.Error(t, err)
		assert.False(t, saved)
		assert.True(t, codec.IsEncodeError(err))

		// The good wallet is still there.
		got, ok, err := s.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assertWalletEqual(t, PlainWallet(), got)
	})

	t.Run("concurrent loads see a complete old or new wallet", func(t *testing.T) {
		s := newBackend(t)
		const (
			writers  = 4
			readers  = 4
			initial  = 100
			perWrite = 5
		)
		_, err := s.Save(counterWallet(initial), false)
		require.NoError(t, err)

		var (
			writeWG sync.WaitGroup
			readWG  sync.WaitGroup
			done    = make(chan struct{})
			errs    = make(chan error, writers*perWrite+readers)
		)
		for i := range writers {
			writeWG.Add(1)
			go func() {
				defer writeWG.Done()
				for j := range perWrite {
					if _, err := s.Save(counterWallet(i*perWrite+j), true); err != nil {
						errs <- err
					}
				}
			}()
		}
		for range readers {
			readWG.Add(1)
			go func() {
				defer readWG.Done()
				for {
					select {
					case <-done:
						return
					default:
					}
					got, ok, err := s.Load()
					if err != nil {
						errs <- err
						return
					}
					if !ok {
						errs <- fmt.Errorf("wallet absent during concurrent overwrite")
						return
					}
					pw, isPlain := got.(*wallet.PlainWallet)
					if !isPlain {
						errs <- fmt.Errorf("loaded %T", got)
						return
					}
					if !wallet.Equal(counterWallet(pw.Counter), got) {
						errs <- fmt.Errorf("loaded wallet with counter %d is not one that was saved", pw.Counter)
						return
					}
				}
			}()
		}

		writeWG.Wait()
		close(done)
		readWG.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		requireCounterIn(t, s, initial, writers*perWrite)
	})

	t.Run("concurrent overwrites leave one complete wallet", func(t *testing.T) {
		s := newBackend(t)
		const writers = 8

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := PlainWallet()
				w.Counter = i
				if _, err := s.Save(w, true); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, ok, err := s.Load()
		require.NoError(t, err)
		require.True(t, ok)
		pw := got.(*wallet.PlainWallet)
		assert.GreaterOrEqual(t, pw.Counter, 0)
		assert.Less(t, pw.Counter, writers)

		want := PlainWallet()
		want.Counter = pw.Counter
		assertWalletEqual(t, want, got)
	})
}

// RunExclusiveSaveContract checks that concurrent Save(w, false) calls on
// an empty store have exactly one winner. Only backends whose check and
// write are atomic satisfy it.
func RunExclusiveSaveContract(t *testing.T, newBackend BackendFactory) {
	t.Helper()

	t.Run("exactly one concurrent create wins", func(t *testing.T) {
		s := newBackend(t)
		const writers = 8

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			wins   []int
			failed error
		)
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				saved, err := s.Save(MinimalPlainWallet(i), false)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed = err
					return
				}
				if saved {
					wins = append(wins, i)
				}
			}()
		}
		wg.Wait()

		require.NoError(t, failed)
		require.Len(t, wins, 1)
		requireCounter(t, s, wins[0])
	})
}

// counterWallet is PlainWallet with its counter set, so concurrent writers
// save distinct but fully predictable values.
func counterWallet(counter int) *wallet.PlainWallet {
	w := PlainWallet()
	w.Counter = counter
	return w
}

// requireCounterIn checks the stored counter is initial or in [0, n).
func requireCounterIn(t *testing.T, s store.Store, initial, n int) {
	t.Helper()
	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	counter := got.(*wallet.PlainWallet).Counter
	if counter != initial {
		assert.GreaterOrEqual(t, counter, 0)
		assert.Less(t, counter, n)
	}
}

func requireCounter(t *testing.T, s store.Store, want int) {
	t.Helper()
	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	pw, isPlain := got.(*wallet.PlainWallet)
	require.True(t, isPlain, "expected plain wallet, got %T", got)
	assert.Equal(t, 1, pw.Version)
	assert.Equal(t, want, pw.Counter)
}

func assertWalletEqual(t *testing.T, want, got wallet.Wallet) {
	t.Helper()
	if wallet.Equal(want, got) {
		return
	}
	c := codec.New()
	wantJSON, _ := c.Encode(want)
	gotJSON, _ := c.Encode(got)
	assert.Fail(t, "wallets differ", "want:\n%s\ngot:\n%s", wantJSON, gotJSON)
}
