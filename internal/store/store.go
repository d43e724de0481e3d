package store

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var NotFoundErr = fmt.Errorf("not found")

// One bbolt file backs every persisted collection of the bot.
// Every access opens its own View/Update transaction: nothing holds
// a transaction across a network call or a sleep
type DB struct {
	DB *bolt.DB
}

func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	return &DB{DB: db}, nil
}

func (db *DB) Close() error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing db: %w", err)
	}
	return nil
}
