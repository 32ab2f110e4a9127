package archive

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/wts/internal/domain"
	"github.com/pbaille/wts/internal/store"
)

//go:embed schema.sql
var schema string

// ErrSnapshotNotFound is returned when no snapshot matches an id or prefix
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrAmbiguousSnapshot is returned when a prefix matches several snapshots
var ErrAmbiguousSnapshot = errors.New("ambiguous snapshot prefix")

// Snapshot describes one exported copy of a string file
type Snapshot struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	EntryCount int       `json:"entry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Match is a stored string found by Search
type Match struct {
	SnapshotID string        `json:"snapshot_id"`
	Entry      *domain.Entry `json:"entry"`
}

// Archive keeps snapshots of string files in a SQLite database
type Archive struct {
	db *sql.DB
}

// New opens (or creates) the archive database at dbPath
func New(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

// Export stores every entry of s as a new snapshot
func (a *Archive) Export(s *store.Store, source string) (*Snapshot, error) {
	snap := &Snapshot{
		ID:         uuid.New().String(),
		Source:     source,
		EntryCount: s.Len(),
		CreatedAt:  time.Now().UTC(),
	}

	levels, err := levelsByID(s)
	if err != nil {
		return nil, err
	}

	tx, err := a.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO snapshots (id, source, entry_count, created_at) VALUES (?, ?, ?, ?)",
		snap.ID, snap.Source, snap.EntryCount, snap.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO strings (snapshot_id, id, content, comment, category, entity, field, level) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for e := range s.All() {
		var category, entity, field, level any
		if lv, ok := levels[e.ID]; ok {
			category, entity, field, level = lv.key.Category.Name(), lv.key.Entity, string(lv.key.Field), lv.level
		}
		if _, err := stmt.Exec(snap.ID, e.ID, e.Content, e.Comment(), category, entity, field, level); err != nil {
			return nil, fmt.Errorf("insert string %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit export: %w", err)
	}
	return snap, nil
}

type keyLevel struct {
	key   domain.Key
	level int
}

func levelsByID(s *store.Store) (map[int]keyLevel, error) {
	levels := make(map[int]keyLevel)
	for _, kc := range s.Keys() {
		entries, err := s.Levels(kc.Key)
		if err != nil {
			return nil, err
		}
		for i, e := range entries {
			levels[e.ID] = keyLevel{key: kc.Key, level: i + 1}
		}
	}
	return levels, nil
}

// ListSnapshots returns all snapshots, newest first
func (a *Archive) ListSnapshots() ([]Snapshot, error) {
	rows, err := a.db.Query(
		"SELECT id, source, entry_count, created_at FROM snapshots ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.Source, &s.EntryCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}

	return snaps, rows.Err()
}

// Resolve finds the snapshot whose id starts with prefix
func (a *Archive) Resolve(prefix string) (*Snapshot, error) {
	rows, err := a.db.Query(
		"SELECT id, source, entry_count, created_at FROM snapshots WHERE id LIKE ? ESCAPE '\\' LIMIT 2",
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot: %w", err)
	}
	defer rows.Close()

	var found []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.Source, &s.EntryCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		found = append(found, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve snapshot: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, prefix)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousSnapshot, prefix)
	}
}

// Restore rebuilds the store saved in a snapshot
func (a *Archive) Restore(snapshotID string) (*store.Store, error) {
	rows, err := a.db.Query(
		"SELECT id, content, comment FROM strings WHERE snapshot_id = ? ORDER BY id",
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var (
			id               int
			content, comment string
		)
		if err := rows.Scan(&id, &content, &comment); err != nil {
			return nil, fmt.Errorf("scan string: %w", err)
		}
		e, err := domain.NewEntry(id, content, comment)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}

	return store.Load(entries)
}

// Search performs a simple text search over the content of every snapshot
func (a *Archive) Search(query string) ([]Match, error) {
	rows, err := a.db.Query(`
		SELECT s.snapshot_id, s.id, s.content, s.comment
		FROM strings s
		JOIN snapshots sn ON sn.id = s.snapshot_id
		WHERE s.content LIKE ? ESCAPE '\'
		ORDER BY sn.created_at DESC, s.id
	`, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("search strings: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m                Match
			id               int
			content, comment string
		)
		if err := rows.Scan(&m.SnapshotID, &id, &content, &comment); err != nil {
			return nil, fmt.Errorf("scan string: %w", err)
		}
		if m.Entry, err = domain.NewEntry(id, content, comment); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// Delete removes a snapshot and its strings
func (a *Archive) Delete(snapshotID string) error {
	res, err := a.db.Exec("DELETE FROM snapshots WHERE id = ?", snapshotID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotID)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
