package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"JournalSync/internal/ports"
	"JournalSync/pkg/logger"
)

// Badger is an embedded key/value cache with per-key TTLs.
type Badger struct {
	db *badger.DB
}

var _ ports.AnalysisCache = (*Badger)(nil)

// OpenBadger opens (or creates) a cache at dir. An empty dir keeps the cache in memory.
func OpenBadger(dir string, log *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(logger.New(log, "badger"))
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Badger{db: db}, nil
}

// Get returns a copy of the cached value.
func (b *Badger) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	return value, true, nil
}

// Set stores value under key; ttl <= 0 stores without expiry.
func (b *Badger) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// RunGC reclaims value-log space; badger reports ErrNoRewrite when there is nothing to do.
func (b *Badger) RunGC() error {
	err := b.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
		return fmt.Errorf("badger gc: %w", err)
	}
	return nil
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}
