package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

const threadKeyPrefix = "thread:"

var _ ThreadStore = (*BoltStore)(nil)

type BoltStore struct {
	db *database
}

func NewBoltStore(dataDir string) (*BoltStore, error) {
	db, isFirstTime, err := openDatabase(dataDir)
	if err != nil {
		return nil, err
	}

	store := &BoltStore{db: db}
	if isFirstTime {
		if err := store.initStorage(); err != nil {
			_ = db.close()
			return nil, err
		}
	}
	if err := store.checkSchema(); err != nil {
		_ = db.close()
		return nil, err
	}

	return store, nil
}

func (s *BoltStore) Close() error {
	return s.db.close()
}

func (s *BoltStore) SaveThread(_ context.Context, record *ThreadRecord) error {
	if record == nil || record.Info == nil {
		return fmt.Errorf("thread info is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal thread %s: %w", record.Info.ID, err)
	}

	return s.db.put([]byte(threadKeyPrefix+record.Info.ID), data)
}

func (s *BoltStore) LoadThreads(_ context.Context) ([]*ThreadRecord, error) {
	entries, err := s.db.list([]byte(threadKeyPrefix))
	if err != nil {
		return nil, err
	}

	threads := make([]*ThreadRecord, 0, len(entries))
	for key, value := range entries {
		if len(value) == 0 {
			continue
		}

		var stored ThreadRecord
		if err := json.Unmarshal(value, &stored); err != nil {
			return nil, fmt.Errorf("failed to unmarshal thread %s: %w", key, err)
		}

		if stored.Info == nil {
			continue
		}

		threads = append(threads, &stored)
	}

	return threads, nil
}

func (s *BoltStore) DeleteThread(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("thread id is required")
	}

	value, err := s.db.get([]byte(threadKeyPrefix + id))
	if err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("thread %s: %w", id, ErrNotFound)
	}

	return s.db.delete([]byte(threadKeyPrefix + id))
}
