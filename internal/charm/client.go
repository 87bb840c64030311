// ABOUTME: Charm KV client wrapper for cloud-synced run storage.
// ABOUTME: Implements storage.KV with thread-safe access and automatic cloud sync.
package charm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	badger "github.com/dgraph-io/badger/v3"
	"github.com/harperreed/runlog/internal/storage"
)

const (
	// DefaultDBName is the Charm KV database holding runlog data.
	DefaultDBName = "runlog"

	// DefaultHost is the Charm server used when none is configured.
	DefaultHost = "charm.2389.dev"
)

// ErrReadOnly is returned for writes while another process holds the database lock.
var ErrReadOnly = errors.New("cannot write: database is locked by another process (MCP server?)")

// store is the subset of *kv.KV the client uses.
type store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
	IsReadOnly() bool
	Close() error
}

// txnStore is the transactional half of *kv.KV. Commit syncs the diff to the
// Charm server.
type txnStore interface {
	NewTransaction(update bool) (*badger.Txn, error)
	Commit(txn *badger.Txn, callback func(error)) error
}

// Options configures a Client.
type Options struct {
	Host     string
	DBName   string
	AutoSync bool
}

var (
	globalClient *Client
	clientOnce   sync.Once
	clientErr    error
)

// Client is a Charm KV database usable as a storage.KV.
type Client struct {
	kv       store
	autoSync bool
	mu       sync.RWMutex
}

var (
	_ storage.KV      = (*Client)(nil)
	_ storage.Batcher = (*Client)(nil)
)

// InitClient initializes the global Charm client.
// Thread-safe; later calls return the first client regardless of opts.
func InitClient(opts Options) (*Client, error) {
	clientOnce.Do(func() {
		globalClient, clientErr = Open(opts)
	})
	return globalClient, clientErr
}

// Open opens the Charm KV database and pulls remote data.
func Open(opts Options) (*Client, error) {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.DBName == "" {
		opts.DBName = DefaultDBName
	}

	// Set server before opening KV
	if err := os.Setenv("CHARM_HOST", opts.Host); err != nil {
		return nil, fmt.Errorf("set charm host: %w", err)
	}

	db, err := kv.OpenWithDefaultsFallback(opts.DBName)
	if err != nil {
		return nil, fmt.Errorf("open charm kv: %w", err)
	}

	c := newClient(db, opts.AutoSync)

	// Pull remote data on startup (skip in read-only mode)
	if !db.IsReadOnly() {
		_ = db.Sync()
	}
	return c, nil
}

func newClient(s store, autoSync bool) *Client {
	return &Client{kv: s, autoSync: autoSync}
}

// Close closes the KV database connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// IsReadOnly returns true if the database is open in read-only mode.
// This happens when another process (like an MCP server) holds the lock.
func (c *Client) IsReadOnly() bool {
	return c.kv.IsReadOnly()
}

// Sync synchronizes local state with Charm Cloud.
func (c *Client) Sync() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.kv.IsReadOnly() {
		return nil
	}
	return c.kv.Sync()
}

// syncIfEnabled calls Sync if autoSync is enabled.
func (c *Client) syncIfEnabled() {
	if c.autoSync && !c.kv.IsReadOnly() {
		_ = c.kv.Sync()
	}
}

// SetAutoSync enables or disables automatic sync after writes.
func (c *Client) SetAutoSync(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSync = enabled
}

// ID returns the Charm user ID for the current account.
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("create charm client: %w", err)
	}
	return cc.ID()
}

// Reset wipes local data and rebuilds from Charm Cloud.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// Get returns the value for key, or an error matching storage.ErrNotFound.
func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, err := c.kv.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return val, err
}

// Set stores a value with the given key.
func (c *Client) Set(key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}
	if err := c.kv.Set(key, value); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// Delete removes a key.
func (c *Client) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}
	if err := c.kv.Delete(key); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// Apply writes muts in one Charm transaction when the store supports it, and
// one key at a time otherwise.
func (c *Client) Apply(muts []storage.Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}
	ts, ok := c.kv.(txnStore)
	if !ok {
		for _, m := range muts {
			var err error
			if m.Value == nil {
				err = c.kv.Delete(m.Key)
			} else {
				err = c.kv.Set(m.Key, m.Value)
			}
			if err != nil {
				return err
			}
		}
		c.syncIfEnabled()
		return nil
	}

	txn, err := ts.NewTransaction(true)
	if err != nil {
		return err
	}
	defer txn.Discard()
	for _, m := range muts {
		if m.Value == nil {
			err = txn.Delete(m.Key)
		} else {
			err = txn.Set(m.Key, m.Value)
		}
		if err != nil {
			return err
		}
	}
	if err := ts.Commit(txn, nil); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// Keys returns all keys starting with prefix, sorted.
func (c *Client) Keys(prefix []byte) ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}

	var out [][]byte
	for _, key := range keys {
		if bytes.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out, nil
}
