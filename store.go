package aiml

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aimlkit/aiml/internal/brain/migrations"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const brainSchemaVersion = "1"

// BrainState is the complete persisted bot state: every loaded category in
// load order, the session snapshot, and bot predicates.
type BrainState struct {
	Categories    []*Category
	Session       []byte
	BotPredicates map[string]string
	SnapshotID    string
	SavedAt       time.Time
}

// BrainStore manages the SQLite brain file a bot saves to and restores
// from.
type BrainStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
	path   string
}

// NewBrainStore opens or creates a brain file.
func NewBrainStore(path string) (*BrainStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create brain directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open brain: %w", err)
	}

	// WAL keeps save cheap even while another reader inspects the file
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	store := &BrainStore{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate brain schema: %w", err)
	}

	return store, nil
}

func (s *BrainStore) migrate() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("brain: set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("brain: run migrations: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, brainSchemaVersion)
	return err
}

// Save atomically replaces the persisted state with the given one.
func (s *BrainStore) Save(state *BrainState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("brain: begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	for _, table := range []string{"categories", "session", "bot_predicates"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("brain: clear %s: %w", table, err)
		}
	}

	for i, c := range state.Categories {
		_, err := tx.Exec(`
			INSERT INTO categories (id, position, pattern, that, topic, template, source)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, i, c.Pattern, c.That, c.Topic, c.Raw, c.Source)
		if err != nil {
			return fmt.Errorf("brain: insert category: %w", err)
		}
	}

	if len(state.Session) > 0 {
		_, err := tx.Exec(`INSERT INTO session (id, snapshot) VALUES (1, ?)`, string(state.Session))
		if err != nil {
			return fmt.Errorf("brain: save session: %w", err)
		}
	}

	for name, value := range state.BotPredicates {
		_, err := tx.Exec(`INSERT INTO bot_predicates (name, value) VALUES (?, ?)`, name, value)
		if err != nil {
			return fmt.Errorf("brain: save bot predicate: %w", err)
		}
	}

	snapshotID := ulid.Make().String()
	savedAt := time.Now().UTC().Format(time.RFC3339)
	for key, value := range map[string]string{
		"snapshot_id": snapshotID,
		"saved_at":    savedAt,
	} {
		_, err := tx.Exec(`
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		if err != nil {
			return fmt.Errorf("brain: save metadata: %w", err)
		}
	}

	return tx.Commit()
}

// Load reads the persisted state back. Category templates are re-parsed
// from their stored markup.
func (s *BrainStore) Load() (*BrainState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	state := &BrainState{BotPredicates: make(map[string]string)}

	rows, err := s.db.Query(`
		SELECT id, pattern, that, topic, template, source
		FROM categories ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("brain: query categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Pattern, &c.That, &c.Topic, &c.Raw, &c.Source); err != nil {
			return nil, fmt.Errorf("brain: scan category: %w", err)
		}
		// Stored templates were validated at original load time; parse
		// leniently so an older brain with since-removed tags still opens.
		tpl, err := ParseTemplate(c.Raw, true)
		if err != nil {
			return nil, fmt.Errorf("brain: template for %s: %w", c.ID, err)
		}
		c.Template = tpl
		state.Categories = append(state.Categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var snapshot sql.NullString
	err = s.db.QueryRow(`SELECT snapshot FROM session WHERE id = 1`).Scan(&snapshot)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("brain: load session: %w", err)
	}
	if snapshot.Valid {
		state.Session = []byte(snapshot.String)
	}

	preds, err := s.db.Query(`SELECT name, value FROM bot_predicates`)
	if err != nil {
		return nil, fmt.Errorf("brain: query bot predicates: %w", err)
	}
	defer preds.Close()
	for preds.Next() {
		var name, value string
		if err := preds.Scan(&name, &value); err != nil {
			return nil, err
		}
		state.BotPredicates[name] = value
	}
	if err := preds.Err(); err != nil {
		return nil, err
	}

	var id, savedAt sql.NullString
	s.db.QueryRow(`SELECT value FROM metadata WHERE key = 'snapshot_id'`).Scan(&id)
	s.db.QueryRow(`SELECT value FROM metadata WHERE key = 'saved_at'`).Scan(&savedAt)
	if id.Valid {
		state.SnapshotID = id.String
	}
	if savedAt.Valid {
		state.SavedAt, _ = time.Parse(time.RFC3339, savedAt.String)
	}

	return state, nil
}

// Stats returns brain file statistics.
func (s *BrainStore) Stats() (categories int, savedAt time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, time.Time{}, ErrStoreClosed
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&categories); err != nil {
		return 0, time.Time{}, err
	}

	var savedAtStr sql.NullString
	s.db.QueryRow("SELECT value FROM metadata WHERE key = 'saved_at'").Scan(&savedAtStr)
	if savedAtStr.Valid {
		savedAt, _ = time.Parse(time.RFC3339, savedAtStr.String)
	}
	return categories, savedAt, nil
}

// Path returns the brain file path.
func (s *BrainStore) Path() string { return s.path }

// Close closes the store.
func (s *BrainStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
