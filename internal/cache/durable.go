package cache

import (
	"bytes"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Durable is a single-file, embedded key-value store (bbolt: page-level
// copy-on-write transactions, with no separate write-ahead log) used
// for the caches that must survive process restarts: the expansion cache
// and the offline LLM-enrichment cache. One bbolt database holds any
// number of independent buckets, one per cache tier, so the process opens
// a single file regardless of how many durable tiers are active.
type Durable struct {
	db *bolt.DB
}

// OpenDurable opens (creating if absent) a bbolt database at path.
func OpenDurable(path string) (*Durable, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open durable cache at %s: %w", path, err)
	}
	return &Durable{db: db}, nil
}

// Close releases the underlying file handle.
func (d *Durable) Close() error {
	return d.db.Close()
}

// Bucket returns a handle scoped to one named bucket, creating it if it
// does not yet exist.
func (d *Durable) Bucket(name string) (*Bucket, error) {
	err := d.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return &Bucket{db: d.db, name: []byte(name)}, nil
}

// Bucket is a durable, prefix-invalidatable key-value namespace.
type Bucket struct {
	db   *bolt.DB
	name []byte
}

// Get returns the raw bytes stored under key, or (nil, false) on a miss.
func (b *Bucket) Get(key string) ([]byte, bool) {
	var value []byte
	_ = b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk == nil {
			return nil
		}
		if v := bk.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, value != nil
}

// Put durably stores value under key; its bbolt transaction is committed
// before return.
func (b *Bucket) Put(key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk == nil {
			var err error
			bk, err = tx.CreateBucketIfNotExists(b.name)
			if err != nil {
				return err
			}
		}
		return bk.Put([]byte(key), value)
	})
}

// Invalidate deletes every key with the given prefix.
func (b *Bucket) Invalidate(prefix string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk == nil {
			return nil
		}
		c := bk.Cursor()
		p := []byte(prefix)
		var toDelete [][]byte
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			toDelete = append(toDelete, append([]byte(nil), k...))
		}
		for _, k := range toDelete {
			if err := bk.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
