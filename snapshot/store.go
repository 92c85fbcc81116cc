package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/chazu/protean/runtime"
)

// ErrSnapshotNotFound indicates the requested snapshot doesn't exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store is SQLite-backed snapshot storage.
//
// Unlike the engine, the store owns its instance handles: loaded instances
// sit in an id-keyed map until Delete or Close releases them. This is the
// explicit counterpart of the engine's non-owning instance tagging.
type Store struct {
	db     *sql.DB
	file   string
	space  *runtime.ObjectSpace
	mu     sync.Mutex
	loaded map[string]*runtime.Instance
}

// Open opens (or creates) a snapshot database at path.
func Open(path string, space *runtime.ObjectSpace) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id    TEXT PRIMARY KEY,
		class TEXT NOT NULL,
		data  BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{
		db:     db,
		file:   path,
		space:  space,
		loaded: make(map[string]*runtime.Instance),
	}, nil
}

// Path reports the database file backing this store.
func (st *Store) Path() string { return st.file }

// Close releases every held instance and closes the database.
func (st *Store) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.loaded = make(map[string]*runtime.Instance)
	if st.db != nil {
		return st.db.Close()
	}
	return nil
}

// Save persists an instance's snapshot, replacing any previous row with
// the same instance ID.
func (st *Store) Save(inst *runtime.Instance) error {
	s, err := Capture(inst)
	if err != nil {
		return err
	}
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	_, err = st.db.Exec(
		"INSERT OR REPLACE INTO snapshots (id, class, data) VALUES (?, ?, ?)",
		s.ID, s.Class, data,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	st.loaded[inst.ID] = inst
	return nil
}

// Load restores an instance by ID. Restoration goes through the public
// engine surface: a no-argument Instantiate of the snapshotted class, then
// field writes. The class must be registered and default-constructible.
// The restored handle keeps the snapshot's ID and is held by the store
// until Delete or Close.
func (st *Store) Load(id string) (*runtime.Instance, error) {
	st.mu.Lock()
	if inst, ok := st.loaded[id]; ok {
		st.mu.Unlock()
		return inst, nil
	}
	st.mu.Unlock()

	var data []byte
	err := st.db.QueryRow("SELECT data FROM snapshots WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	s, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}

	inst, err := st.space.Instantiate(s.Class)
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", s.Class, err)
	}
	inst.ID = s.ID
	for key, wv := range s.Vars {
		if err := st.space.SetField(inst, key, fromWire(wv)); err != nil {
			return nil, fmt.Errorf("restoring %s.%s: %w", s.Class, key, err)
		}
	}

	st.mu.Lock()
	st.loaded[id] = inst
	st.mu.Unlock()
	return inst, nil
}

// Delete removes a snapshot and releases its held instance, running the
// instance's finalize hook first.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	inst := st.loaded[id]
	delete(st.loaded, id)
	st.mu.Unlock()

	if inst != nil {
		if err := st.space.Finalize(inst); err != nil {
			return fmt.Errorf("finalizing %s: %w", id, err)
		}
	}

	if _, err := st.db.Exec("DELETE FROM snapshots WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// List returns the IDs of all stored snapshots, with their class names.
func (st *Store) List() (map[string]string, error) {
	rows, err := st.db.Query("SELECT id, class FROM snapshots ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, class string
		if err := rows.Scan(&id, &class); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		out[id] = class
	}
	return out, rows.Err()
}
