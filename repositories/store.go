package repositories

import (
	"fmt"

	"restaurant-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// OpenInMemory opens a throwaway database, used when no path is configured.
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, errors.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// updateJSON reads, mutates and writes back one record inside a single
// transaction. Badger aborts the transaction when another writer touched
// the key in between.
func updateJSON[T any](db *badger.DB, key string, mutate func(*T) error) (T, error) {
	var value T
	err := db.Update(func(txn *badger.Txn) error {
		var current T
		if err := getJSON(txn, key, &current); err != nil {
			return err
		}
		if err := mutate(&current); err != nil {
			return err
		}
		value = current
		return setJSON(txn, key, current)
	})
	return value, err
}
