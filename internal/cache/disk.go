package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const defaultDiskPath = ".cache"

func init() {
	Register("disk", newDiskCache)
}

// diskCache implements the Cache interface on top of BadgerDB, persisting
// entries across process restarts. Entries carry a TTL and are expired by
// Badger itself. The Size limit is not enforced because Badger has no
// count-based eviction; the TTL bounds growth instead.
//
// OnEvict is not supported: Badger expires entries internally without
// notifying the application.
type diskCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger Logger
}

func newDiskCache(cfg ProviderConfig) (Cache, error) {
	path := cfg.Path
	if path == "" {
		path = defaultDiskPath
	}

	db, err := badger.Open(
		badger.DefaultOptions(path).
			WithNumVersionsToKeep(0).
			WithValueLogFileSize(1024 * 1024 * 100).
			WithLogger(&badgerLogger{logger: cfg.Logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", path, err)
	}

	return &diskCache{
		db:     db,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
	}, nil
}

func (d *diskCache) logError(msg string, err error) {
	if d.logger != nil {
		d.logger.Error(msg, err)
	}
}

func (d *diskCache) Get(key string) ([]byte, bool) {
	var value []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			d.logError("disk cache Get failed", err)
		}
		return nil, false
	}
	return value, true
}

func (d *diskCache) Set(key string, value []byte) {
	err := d.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if d.ttl > 0 {
			entry = entry.WithTTL(d.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		d.logError("disk cache Set failed", err)
	}
}

func (d *diskCache) Contains(key string) bool {
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		d.logError("disk cache Contains failed", err)
	}
	return err == nil
}

func (d *diskCache) Len() int {
	count := 0
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		d.logError("disk cache Len failed", err)
		return 0
	}
	return count
}

// Close flushes pending updates to disk and closes the database.
func (d *diskCache) Close() error {
	return d.db.Close()
}

// badgerLogger adapts the cache Logger to Badger's logging interface.
// Only errors are forwarded; Badger's info and debug output is too chatty
// for a cache that opens on every run.
type badgerLogger struct {
	logger Logger
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Error("badger", fmt.Errorf(format, args...))
	}
}

func (b *badgerLogger) Warningf(string, ...interface{}) {}
func (b *badgerLogger) Infof(string, ...interface{})    {}
func (b *badgerLogger) Debugf(string, ...interface{})   {}
