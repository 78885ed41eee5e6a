package storage

import (
	"fmt"
	"strconv"
)

const (
	schemaVersionKey     = "meta:schema_version"
	currentSchemaVersion = 1
)

type initStorageFunc func(s *BoltStore) error

var initStorageFuncs = []initStorageFunc{
	initSchemaVersion,
}

func (s *BoltStore) initStorage() error {
	for _, f := range initStorageFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

func initSchemaVersion(s *BoltStore) error {
	return s.db.put([]byte(schemaVersionKey), []byte(strconv.Itoa(currentSchemaVersion)))
}

func (s *BoltStore) checkSchema() error {
	value, err := s.db.get([]byte(schemaVersionKey))
	if err != nil {
		return err
	}
	if value == nil {
		return initSchemaVersion(s)
	}

	version, err := strconv.Atoi(string(value))
	if err != nil {
		return fmt.Errorf("invalid schema version %q: %w", value, err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	return nil
}
