// Package keystore persists named private keys and their public curves in a
// bbolt database. Records are CBOR encoded.
package keystore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
)

const (
	metadataBucket = "metadata"
	versionKey     = "version"
	dbVersion      = 0

	maxNameSize = 64
)

var (
	ErrNoSuchKey     = errors.New("keystore: no such key")
	ErrKeyExists     = errors.New("keystore: key already exists")
	ErrParamMismatch = errors.New("keystore: key belongs to another parameter set")
)

// record is the stored form of a key.
type record struct {
	Params  string
	Key     []byte
	Public  []byte
	Created int64
}

// Entry is a decoded key record.
type Entry struct {
	Name    string
	Key     *keygen.Key
	Public  *curves.Montgomery
	Created time.Time
}

// Store is a key database for one parameter set.
type Store struct {
	sync.Mutex

	db     *bolt.DB
	bucket []byte
	params *params.Params
}

// Open creates (or loads) the key database f. Keys are kept in bucket.
func Open(f, bucket string, ps *params.Params) (*Store, error) {
	if bucket == "" || bucket == metadataBucket {
		return nil, fmt.Errorf("keystore: invalid bucket name %q", bucket)
	}
	db, err := bolt.Open(f, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, bucket: []byte(bucket), params: ps}

	if err = db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err = tx.CreateBucketIfNotExists(s.bucket); err != nil {
			return err
		}
		if b := bkt.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != dbVersion {
				return fmt.Errorf("keystore: incompatible version: %d", uint(b[0]))
			}
			return nil
		}
		return bkt.Put([]byte(versionKey), []byte{dbVersion})
	}); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func nameOk(name string) error {
	if len(name) == 0 || len(name) > maxNameSize {
		return fmt.Errorf("keystore: invalid key name %q", name)
	}
	return nil
}

// Put stores key and its public curve under name. An existing record is
// replaced only when overwrite is set.
func (s *Store) Put(name string, key *keygen.Key, pub *curves.Montgomery, overwrite bool) error {
	if err := nameOk(name); err != nil {
		return err
	}
	if err := key.Validate(s.params); err != nil {
		return err
	}
	kb, err := keygen.MarshalKey(key)
	if err != nil {
		return err
	}
	raw, err := cbor.Marshal(&record{
		Params:  s.params.Name,
		Key:     kb,
		Public:  keygen.MarshalCurve(pub),
		Created: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if !overwrite && bkt.Get([]byte(name)) != nil {
			return fmt.Errorf("%w: %s", ErrKeyExists, name)
		}
		return bkt.Put([]byte(name), raw)
	})
}

// Get loads and decodes the record stored under name.
func (s *Store) Get(name string) (*Entry, error) {
	if err := nameOk(name); err != nil {
		return nil, err
	}
	var rec record
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(name))
		if raw == nil {
			return fmt.Errorf("%w: %s", ErrNoSuchKey, name)
		}
		return cbor.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, err
	}
	if rec.Params != s.params.Name {
		return nil, fmt.Errorf("%w: %s uses %q", ErrParamMismatch, name, rec.Params)
	}
	key, err := keygen.UnmarshalKey(s.params, rec.Key)
	if err != nil {
		return nil, err
	}
	pub, err := keygen.UnmarshalCurve(s.params, rec.Public)
	if err != nil {
		return nil, err
	}
	return &Entry{Name: name, Key: key, Public: pub, Created: time.Unix(rec.Created, 0)}, nil
}

// Delete removes the record stored under name.
func (s *Store) Delete(name string) error {
	if err := nameOk(name); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if bkt.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrNoSuchKey, name)
		}
		return bkt.Delete([]byte(name))
	})
}

// List returns the stored key names in order.
func (s *Store) List() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	s.db.Sync()
	return s.db.Close()
}
