package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

// SQLiteIndex mirrors the journal into a queryable SQLite database. Writes
// go through a single writer goroutine; Close drains it.
type SQLiteIndex struct {
	db     *sql.DB
	logger *log.Logger

	ch chan Entry
	wg sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// SessionSummary is one row of Sessions.
type SessionSummary struct {
	SessionID string
	Entries   int
	LastMile  int
	LastAt    time.Time
}

func OpenSQLite(path string, logger *log.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:     db,
		logger: logger,
		ch:     make(chan Entry, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			hour INTEGER NOT NULL,
			mile INTEGER NOT NULL,
			kind TEXT NOT NULL,
			content_id INTEGER NOT NULL,
			action_id INTEGER NOT NULL,
			detail TEXT,
			at TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind, content_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Record(e Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("journal index is closed")
	}
	s.ch <- e
	return nil
}

func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}

func (s *SQLiteIndex) loop() {
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO entries(session_id,seq,tick,hour,mile,kind,content_id,action_id,detail,at) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		s.logger.Error("journal index disabled", "err", err)
		for range s.ch {
		}
		return
	}
	defer insert.Close()

	for e := range s.ch {
		_, err := insert.Exec(e.SessionID, e.Seq, e.Tick, e.Hour, e.Mile, e.Kind, e.ContentID, e.ActionID, e.Detail, e.At.UTC().Format(time.RFC3339Nano))
		if err != nil {
			s.logger.Warn("journal index write failed", "session", e.SessionID, "seq", e.Seq, "err", err)
		}
	}
}

// Entries returns a session's entries in sequence order.
func (s *SQLiteIndex) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id,seq,tick,hour,mile,kind,content_id,action_id,COALESCE(detail,''),at FROM entries WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.SessionID, &e.Seq, &e.Tick, &e.Hour, &e.Mile, &e.Kind, &e.ContentID, &e.ActionID, &e.Detail, &at); err != nil {
			return nil, err
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.Seq, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Sessions summarizes every journaled session, most recent first.
func (s *SQLiteIndex) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, COUNT(*), MAX(mile), MAX(at) FROM entries GROUP BY session_id ORDER BY MAX(at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var at string
		if err := rows.Scan(&sum.SessionID, &sum.Entries, &sum.LastMile, &at); err != nil {
			return nil, err
		}
		sum.LastAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, sum)
	}
	return out, rows.Err()
}
