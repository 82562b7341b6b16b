package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Key segments are joined with NUL so free-text values (actors, entity
// references) can never collide with the separator.
const sep = "\x00"

var sequenceKey = []byte("seq" + sep + "case_number")

func key(parts ...string) []byte {
	return []byte(strings.Join(parts, sep))
}

func prefix(parts ...string) []byte {
	return []byte(strings.Join(parts, sep) + sep)
}

func getJSON(txn *badger.Txn, k []byte, v any) error {
	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", k, err)
	}
	return txn.Set(k, data)
}

func exists(txn *badger.Txn, k []byte) (bool, error) {
	_, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// scanIDs returns the last key segment of every key under p, in key order.
func scanIDs(txn *badger.Txn, p []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		k := string(it.Item().Key())
		ids = append(ids, k[strings.LastIndex(k, sep)+1:])
	}
	return ids
}

func countPrefix(txn *badger.Txn, p []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		n++
	}
	return n
}
