package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

// walletKey is the single key the Badger backend writes.
var walletKey = []byte("walletstore/wallet")

// maxConflictRetries bounds Save attempts when another writer commits the
// same key first. A retry re-reads the key, so Save(w, false) then reports
// the other writer's wallet as existing.
const maxConflictRetries = 3

// BadgerBackend stores the wallet under one key in a Badger database. The
// existence check and the write share one read-write transaction.
type BadgerBackend struct {
	db     *badger.DB
	path   string
	codec  *codec.Codec
	logger *slog.Logger
}

// OpenBadger opens the database in dir. With inMemory set nothing touches
// the disk and dir is ignored.
func OpenBadger(dir string, inMemory bool, c *codec.Codec, logger *slog.Logger) (*BadgerBackend, error) {
	logger = orDefaultLogger(logger)

	opts := badger.DefaultOptions(dir)
	if inMemory {
		opts = badger.DefaultOptions("")
		opts.InMemory = true
		dir = "memory"
	}
	opts.Logger = badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, ioFailure("open", dir, err)
	}

	return &BadgerBackend{
		db:     db,
		path:   dir,
		codec:  orDefaultCodec(c),
		logger: logger,
	}, nil
}

// Kind returns KindBadger.
func (b *BadgerBackend) Kind() Kind { return KindBadger }

// Close closes the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// Save implements Store.
func (b *BadgerBackend) Save(w wallet.Wallet, overwrite bool) (bool, error) {
	if isNil(w) {
		return false, ErrNilWallet
	}
	data, err := b.codec.Encode(w)
	if err != nil {
		return false, err
	}

	var saved bool
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		saved, err = b.trySave(data, overwrite)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		b.logger.Debug("badger transaction conflict, retrying", "attempt", attempt+1)
	}
	if err != nil {
		return false, ioFailure("save", b.path, err)
	}

	if !saved {
		b.logger.Debug("wallet exists, overwrite not requested", "path", b.path)
		return false, nil
	}
	b.logger.Debug("wallet saved", "path", b.path, "bytes", len(data))
	return true, nil
}

// trySave runs one check-and-set transaction.
func (b *BadgerBackend) trySave(data []byte, overwrite bool) (bool, error) {
	saved := false
	err := b.db.Update(func(txn *badger.Txn) error {
		// Blind writes never conflict; only the guarded path reads the key.
		if !overwrite {
			_, err := txn.Get(walletKey)
			if err == nil {
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}

		if err := txn.Set(walletKey, data); err != nil {
			return err
		}
		saved = true
		return nil
	})
	return saved, err
}

// Load implements Store.
func (b *BadgerBackend) Load() (wallet.Wallet, bool, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(walletKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ioFailure("load", b.path, err)
	}

	w, err := b.codec.Decode(data)
	if err != nil {
		return nil, false, decodeFailure("load", b.path, err)
	}
	return w, true, nil
}

// badgerLogger routes Badger's internal logging into slog. Badger's info
// output is chatty, so it is logged at debug level.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(badgerMessage(format, args), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(badgerMessage(format, args), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(badgerMessage(format, args), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(badgerMessage(format, args), "component", "badger")
}

func badgerMessage(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
