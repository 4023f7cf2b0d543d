package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/clipsync/clipsync-go/pkg/wire"
)

// ExcerptLength is the number of runes of clip content kept per entry.
const ExcerptLength = 80

// Entry is one journaled notification.
type Entry struct {
	ID         int64
	ReceivedAt time.Time
	SessionID  string
	Kind       wire.Type
	ClipID     string
	Excerpt    string
	Tags       []string
	IDs        []string
	Count      int
}

// Store provides SQLite persistence for notifications.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	now func() time.Time
}

// Open opens (or creates) the journal at path.
// Use ":memory:" for an in-memory journal.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure journal: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return s, nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		received_at DATETIME NOT NULL,
		session_id TEXT,
		kind TEXT NOT NULL,
		clip_id TEXT,
		excerpt TEXT,
		tags_json TEXT,
		ids_json TEXT,
		count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_received_at ON notifications(received_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_clip_id ON notifications(clip_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordNotification journals a notification received on session sessionID.
func (s *Store) RecordNotification(sessionID string, n wire.Notification) (int64, error) {
	e := Entry{
		ReceivedAt: s.now(),
		SessionID:  sessionID,
		Kind:       n.FrameType(),
	}
	switch v := n.(type) {
	case wire.NewClip:
		e.ClipID = v.ID
		e.Excerpt = wire.Excerpt(v.Content, ExcerptLength)
		e.Tags = v.Tags
	case wire.UpdatedClip:
		e.ClipID = v.ID
	case wire.DeletedClip:
		e.ClipID = v.ID
	case wire.ClipsCleanedUp:
		e.IDs = v.IDs
		e.Count = v.Count
	}
	return s.Record(&e)
}

// Record inserts an entry and returns its ID.
func (s *Store) Record(e *Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = s.now()
	}
	tags, err := encodeList(e.Tags)
	if err != nil {
		return 0, err
	}
	ids, err := encodeList(e.IDs)
	if err != nil {
		return 0, err
	}

	res, err := s.db.Exec(`
		INSERT INTO notifications (received_at, session_id, kind, clip_id, excerpt, tags_json, ids_json, count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ReceivedAt.UTC(), e.SessionID, string(e.Kind), e.ClipID, e.Excerpt, tags, ids, e.Count)
	if err != nil {
		return 0, fmt.Errorf("failed to record notification: %w", err)
	}

	e.ID, err = res.LastInsertId()
	return e.ID, err
}

// Recent returns up to limit entries, newest first. A non-empty kind filters by type.
func (s *Store) Recent(limit int, kind wire.Type) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, received_at, session_id, kind, clip_id, excerpt, tags_json, ids_json, count
		FROM notifications`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kindStr string
		var sessionID, clipID, excerpt, tags, ids sql.NullString
		if err := rows.Scan(&e.ID, &e.ReceivedAt, &sessionID, &kindStr, &clipID, &excerpt, &tags, &ids, &e.Count); err != nil {
			return nil, err
		}
		e.Kind = wire.Type(kindStr)
		e.SessionID = sessionID.String
		e.ClipID = clipID.String
		e.Excerpt = excerpt.String
		if e.Tags, err = decodeList(tags); err != nil {
			return nil, err
		}
		if e.IDs, err = decodeList(ids); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// History returns every entry for one clip, oldest first.
func (s *Store) History(clipID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, received_at, kind FROM notifications
		WHERE clip_id = ?
		   OR EXISTS (SELECT 1 FROM json_each(notifications.ids_json) WHERE value = ?)
		ORDER BY id ASC
	`, clipID, clipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{ClipID: clipID}
		var kindStr string
		if err := rows.Scan(&e.ID, &e.ReceivedAt, &kindStr); err != nil {
			return nil, err
		}
		e.Kind = wire.Type(kindStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of journaled notifications per kind.
func (s *Store) Count() (map[wire.Type]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM notifications GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[wire.Type]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[wire.Type(kind)] = n
	}
	return counts, rows.Err()
}

// Prune deletes entries received before cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM notifications WHERE received_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func encodeList(items []string) (any, error) {
	if len(items) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeList(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
		return nil, fmt.Errorf("corrupt list column: %w", err)
	}
	return items, nil
}
