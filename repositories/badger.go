package repositories

import (
	"encoding/binary"
	"encoding/json"
	stderrors "errors"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds how many times a read-write transaction is
// replayed after losing an optimistic concurrency check.
const maxConflictRetries = 16

// update runs fn in a read-write transaction, replaying it when badger
// reports a conflict with a concurrent writer.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !stderrors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// nextID increments the counter stored at key inside txn. The first id is 1.
func nextID(txn *badger.Txn, key []byte) (uint64, error) {
	var current uint64
	item, err := txn.Get(key)
	switch {
	case err == nil:
		if err = item.Value(func(val []byte) error {
			current = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	case !stderrors.Is(err, badger.ErrKeyNotFound):
		return 0, err
	}
	current++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, current)
	return current, txn.Set(key, buf)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, bytes)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// scanPrefix walks every key under prefix in ascending order.
func scanPrefix(txn *badger.Txn, prefix []byte, keysOnly bool, fn func(item *badger.Item) error) error {
	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	options.PrefetchValues = !keysOnly
	it := txn.NewIterator(options)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := fn(it.Item()); err != nil {
			return err
		}
	}
	return nil
}

func unmarshal(val []byte, v any) error {
	return json.Unmarshal(val, v)
}
