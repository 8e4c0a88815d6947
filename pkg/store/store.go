// Package store persists named session snapshots in BadgerDB, encoded with
// msgpack.
package store

import (
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when no object is stored under a name.
var ErrNotFound = errors.New("store: not found")

const prefix = "snapshot/"

// Options configures the store.
type Options struct {
	// Dir holds the database files. Required unless InMemory is set.
	Dir string
	// InMemory runs badger without disk persistence.
	InMemory bool
}

// Store is a name-keyed object store.
type Store struct {
	db *badger.DB
}

// Open opens or creates the database.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(klogLogger{})
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(klogLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrap(err, "store: open")
	}
	return &Store{db: db}, nil
}

func key(name string) []byte {
	return []byte(prefix + name)
}

// Put encodes v and stores it under name, replacing any previous value.
func (s *Store) Put(name string, v interface{}) error {
	if name == "" {
		return errors.New("store: empty name")
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "store: encode %s", name)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(name), data)
	})
}

// Get decodes the object stored under name into v.
func (s *Store) Get(name string, v interface{}) error {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.Wrap(ErrNotFound, name)
	}
	if err != nil {
		return errors.Wrapf(err, "store: read %s", name)
	}
	return errors.Wrapf(msgpack.Unmarshal(data, v), "store: decode %s", name)
}

// Delete removes name. Deleting a missing name is not an error.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(name))
	})
}

// List returns stored names in key order.
func (s *Store) List() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().KeyCopy(nil)), prefix))
		}
		return nil
	})
	return names, err
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// klogLogger routes badger output through klog, keeping info and debug
// messages behind verbosity levels.
type klogLogger struct{}

func (klogLogger) Errorf(f string, v ...interface{})   { klog.Errorf("[badger] "+f, v...) }
func (klogLogger) Warningf(f string, v ...interface{}) { klog.Warningf("[badger] "+f, v...) }
func (klogLogger) Infof(f string, v ...interface{})    { klog.V(2).Infof("[badger] "+f, v...) }
func (klogLogger) Debugf(f string, v ...interface{})   { klog.V(4).Infof("[badger] "+f, v...) }
