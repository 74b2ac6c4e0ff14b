package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		exportName TEXT NOT NULL,
		homeTeam TEXT,
		awayTeam TEXT,
		createdAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS annotations (
		id INTEGER NOT NULL,
		sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		label TEXT NOT NULL,
		timestamp REAL NOT NULL,
		formattedTime TEXT NOT NULL,
		gameClockTime TEXT NOT NULL,
		team TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		PRIMARY KEY (sessionId, id)
	);
`

// Store provides access to a sideline SQLite export file.
type Store struct {
	db *sql.DB
}

// Create opens (creating if needed) an export database for writing.
func Create(path string) (*Store, error) {
	dsn, err := fileDSN(path, url.Values{"_pragma": {"foreign_keys(1)"}})
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Open opens an existing export database in read-only mode.
func Open(path string) (*Store, error) {
	dsn, err := fileDSN(path, url.Values{"mode": {"ro"}})
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// fileDSN builds a SQLite URI for path with its query parameters. The path
// is made absolute and escaped, so '?' and '#' in directory names stay part
// of the path.
func fileDSN(path string, params url.Values) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: params.Encode()}
	return u.String(), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteSession stores a session and its annotations in one transaction.
// An empty sess.ID gets a fresh UUID; the stored session is returned.
func (s *Store) WriteSession(sess Session, anns []Annotation) (Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Session{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO sessions (id, source, exportName, homeTeam, awayTeam, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.Source, sess.ExportName, sess.HomeTeam, sess.AwayTeam, unixFromTime(sess.CreatedAt)); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO annotations (id, sessionId, type, label, timestamp, formattedTime, gameClockTime, team, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Session{}, fmt.Errorf("prepare annotation insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range anns {
		if _, err := stmt.Exec(a.ID, sess.ID, a.Type, a.Label, a.Timestamp,
			a.FormattedTime, a.GameClockTime, a.Team, i); err != nil {
			return Session{}, fmt.Errorf("insert annotation %d: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("commit: %w", err)
	}
	return sess, nil
}

// Sessions returns every session, newest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, source, exportName, homeTeam, awayTeam, createdAt
		FROM sessions
		ORDER BY createdAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// LatestSession returns the most recently exported session, or nil.
func (s *Store) LatestSession() (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, source, exportName, homeTeam, awayTeam, createdAt
		FROM sessions
		ORDER BY createdAt DESC
		LIMIT 1
	`)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

// AnnotationsForSession returns a session's annotations in exported order.
func (s *Store) AnnotationsForSession(sessionID string) ([]Annotation, error) {
	return s.queryAnnotations(`
		SELECT id, sessionId, type, label, timestamp, formattedTime, gameClockTime, team
		FROM annotations
		WHERE sessionId = ?
		ORDER BY position ASC
	`, sessionID)
}

// AnnotationsByType returns a session's annotations of one action type.
func (s *Store) AnnotationsByType(sessionID, actionType string) ([]Annotation, error) {
	return s.queryAnnotations(`
		SELECT id, sessionId, type, label, timestamp, formattedTime, gameClockTime, team
		FROM annotations
		WHERE sessionId = ? AND type = ?
		ORDER BY position ASC
	`, sessionID, actionType)
}

func (s *Store) queryAnnotations(query string, args ...any) ([]Annotation, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	var anns []Annotation
	for rows.Next() {
		var a Annotation
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Type, &a.Label, &a.Timestamp,
			&a.FormattedTime, &a.GameClockTime, &a.Team); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		anns = append(anns, a)
	}
	return anns, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var createdAt float64
	var home, away sql.NullString

	if err := row.Scan(&sess.ID, &sess.Source, &sess.ExportName, &home, &away, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.CreatedAt = timeFromUnix(createdAt)
	sess.HomeTeam = home.String
	sess.AwayTeam = away.String
	return &sess, nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
