// ABOUTME: Badger-backed snapshot persistence for CRM and auth state
// ABOUTME: Two fixed-key JSON partitions with a version tag and migration
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	badger "github.com/dgraph-io/badger/v3"
	"github.com/indik4/crm/auth"
	"github.com/indik4/crm/store"
)

const (
	stateKey   = "crm-state"
	sessionKey = "auth-state"

	// SchemaVersion tags every persisted envelope. Version 0 payloads
	// (raw state without an envelope) are still readable.
	SchemaVersion = 1
)

// DefaultPath returns the database location under the XDG data dir.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "crm", "crm.db")
}

// DB wraps the Badger store holding both partitions.
type DB struct {
	db *badger.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// SaveState writes the CRM partition. Best-effort from the caller's
// perspective: the store never waits on it.
func (d *DB) SaveState(snap store.Snapshot) error {
	return d.save(stateKey, snap)
}

// LoadState reads the CRM partition. Absent or corrupt data yields an
// empty snapshot and no error; the store falls back to its defaults.
func (d *DB) LoadState() (store.Snapshot, error) {
	var snap store.Snapshot
	err := d.load(stateKey, &snap)
	return snap, err
}

// SaveSession writes the auth partition.
func (d *DB) SaveSession(sess auth.Session) error {
	return d.save(sessionKey, sess)
}

// LoadSession reads the auth partition, empty on absence or corruption.
func (d *DB) LoadSession() (auth.Session, error) {
	var sess auth.Session
	err := d.load(sessionKey, &sess)
	return sess, err
}

func (d *DB) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{Version: SchemaVersion, Data: data})
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

// load decodes the partition into out. Missing keys and undecodable
// payloads leave out at its zero value; persistence failures never take
// the application down.
func (d *DB) load(key string, out any) error {
	var raw []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Corrupt partition: fall back to defaults.
		return nil
	}
	data, ok := migrate(env, raw)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		// Decoded envelope but unreadable payload: defaults again, but
		// make sure a half-filled value doesn't leak out.
		zero(out)
		return nil
	}
	return nil
}

// migrate lifts older payload versions to the current schema. Version 0
// is the pre-envelope layout where the whole value is the raw state.
func migrate(env envelope, raw []byte) (json.RawMessage, bool) {
	switch env.Version {
	case SchemaVersion:
		return env.Data, env.Data != nil
	case 0:
		if env.Data != nil {
			return env.Data, true
		}
		return raw, true
	default:
		// Written by a newer build; refuse to guess.
		return nil, false
	}
}

func zero(out any) {
	switch v := out.(type) {
	case *store.Snapshot:
		*v = store.Snapshot{}
	case *auth.Session:
		*v = auth.Session{}
	}
}
