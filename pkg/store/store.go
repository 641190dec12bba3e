// Package store keeps the persistent data of the shell in a bbolt database:
// command history, directory history and universal variables.
package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"src.lsh.sh/pkg/logutil"
	. "src.lsh.sh/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[store] ")

const (
	bucketCmd          = "cmd"
	bucketDir          = "dir"
	bucketUniversalVar = "universal-var"
)

// How long to wait for the lock on the database file held by another shell.
const openTimeout = time.Second

// Functions that initialize the database, keyed by description.
var initDB = map[string](func(*bolt.Tx) error){}

type dbStore struct {
	db *bolt.DB
}

// DBStore is the permanent storage backend of the shell.
type DBStore interface {
	Store
}

// NewStore creates a new Store from the given database file, creating the
// file if it does not exist.
func NewStore(dbname string) (DBStore, error) {
	db, err := bolt.Open(dbname, 0644, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, err
	}
	return NewStoreFromDB(db)
}

// NewStoreFromDB creates a new Store from a bbolt DB.
func NewStoreFromDB(db *bolt.DB) (DBStore, error) {
	logger.Println("initializing store")
	defer logger.Println("initialized store")
	st := &dbStore{db: db}

	err := db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the underlying database.
func (s *dbStore) Close() error {
	return s.db.Close()
}
