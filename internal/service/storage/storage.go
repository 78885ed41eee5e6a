package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	defaultBucket   = "copilot"
	defaultFileName = "copilot.db"
)

type database struct {
	db        *bolt.DB
	closeOnce sync.Once
}

func openDatabase(dataDir string) (*database, bool, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, false, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	dbPath := filepath.Join(dataDir, defaultFileName)

	_, err := os.Stat(dbPath)
	isFirstTime := os.IsNotExist(err)

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(defaultBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, false, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &database{
		db: db,
	}, isFirstTime, nil
}

func (d *database) close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.db != nil {
			err = d.db.Close()
		}
	})
	return err
}

func (d *database) get(key []byte) ([]byte, error) {
	var value []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(defaultBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", defaultBucket)
		}
		v := bucket.Get(key)
		if v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	return value, err
}

func (d *database) put(key, value []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(defaultBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", defaultBucket)
		}
		return bucket.Put(key, value)
	})
}

func (d *database) delete(key []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(defaultBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", defaultBucket)
		}
		return bucket.Delete(key)
	})
}

func (d *database) list(prefix []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := d.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(defaultBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", defaultBucket)
		}
		cursor := bucket.Cursor()
		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			value := make([]byte, len(v))
			copy(value, v)
			result[string(k)] = value
		}
		return nil
	})
	return result, err
}
