// ABOUTME: Badger-backed KV for the embedded key-value backend.
// ABOUTME: Prefix scans use key-only iteration; values are JSON documents.
package storage

import (
	"errors"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v3"
)

// BadgerKV adapts a Badger database to the KV interface.
type BadgerKV struct {
	db *badger.DB
}

var (
	_ KV      = (*BadgerKV)(nil)
	_ Batcher = (*BadgerKV)(nil)
)

// OpenBadger opens or creates a Badger database in dir.
func OpenBadger(dir string) (*BadgerKV, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerKV{db: db}, nil
}

// OpenBadgerInMemory opens a Badger database that lives only in memory.
func OpenBadgerInMemory() (*BadgerKV, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerKV{db: db}, nil
}

// Get returns the value for key, or an error matching ErrNotFound.
func (b *BadgerKV) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return val, err
}

// Set stores value under key.
func (b *BadgerKV) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes key.
func (b *BadgerKV) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Apply writes muts in a single transaction.
func (b *BadgerKV) Apply(muts []Mutation) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, m := range muts {
			var err error
			if m.Value == nil {
				err = txn.Delete(m.Key)
			} else {
				err = txn.Set(m.Key, m.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys returns every key starting with prefix, in key order.
func (b *BadgerKV) Keys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Close closes the database.
func (b *BadgerKV) Close() error {
	return b.db.Close()
}
