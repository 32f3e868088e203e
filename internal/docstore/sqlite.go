package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists documents in a local SQLite database. It is the
// default backend: durable across restarts, one file, no external service.
type SQLiteStore struct {
	db            *sql.DB
	anonymousAuth bool
	hub           *hub
}

var (
	_ Store         = (*SQLiteStore)(nil)
	_ Authenticator = (*SQLiteStore)(nil)
)

// tsLayout is fixed-width so the TEXT column sorts chronologically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// NewSQLite opens (creating if needed) the database at dbPath and runs the
// embedded migrations.
func NewSQLite(dbPath string, anonymousAuth bool) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, anonymousAuth: anonymousAuth, hub: newHub()}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SignInAnonymously returns the store's anonymous uid, minting and persisting
// one on first sign-in so the same install keeps its namespace.
func (s *SQLiteStore) SignInAnonymously(ctx context.Context) (string, error) {
	if !s.anonymousAuth {
		return "", ErrAnonymousAuthDisabled
	}

	var uid string
	err := s.db.QueryRowContext(ctx,
		`SELECT uid FROM users WHERE anonymous = 1 ORDER BY created_at LIMIT 1`).Scan(&uid)
	switch {
	case err == sql.ErrNoRows:
		uid = uuid.NewString()
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO users (uid, anonymous, created_at) VALUES (?, 1, ?)`,
			uid, time.Now().UTC().Format(tsLayout)); err != nil {
			return "", fmt.Errorf("create anonymous user: %w", err)
		}
		slog.InfoContext(ctx, "Created anonymous user", "user_id", uid)
	case err != nil:
		return "", fmt.Errorf("look up anonymous user: %w", err)
	}
	return uid, nil
}

func (s *SQLiteStore) Add(ctx context.Context, uid, collection string, ts time.Time, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (uid, collection, id, ts, data) VALUES (?, ?, ?, ?, ?)`,
		uid, collection, id, ts.UTC().Format(tsLayout), string(data))
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	if err := s.notify(ctx, uid, collection); err != nil {
		slog.WarnContext(ctx, "Change notification failed", "collection", collection, "error", err)
	}
	return id, nil
}

func (s *SQLiteStore) List(ctx context.Context, uid, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, data FROM documents WHERE uid = ? AND collection = ? ORDER BY ts DESC`,
		uid, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc  Document
			ts   string
			data string
		)
		if err := rows.Scan(&doc.ID, &ts, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Timestamp, err = time.Parse(tsLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse document timestamp: %w", err)
		}
		doc.Data = json.RawMessage(data)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *SQLiteStore) Update(ctx context.Context, uid, collection, id string, data json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = ? WHERE uid = ? AND collection = ? AND id = ?`,
		string(data), uid, collection, id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := s.notify(ctx, uid, collection); err != nil {
		slog.WarnContext(ctx, "Change notification failed", "collection", collection, "error", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, uid, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE uid = ? AND collection = ? AND id = ?`,
		uid, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := s.notify(ctx, uid, collection); err != nil {
		slog.WarnContext(ctx, "Change notification failed", "collection", collection, "error", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context, uid, collection string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE uid = ? AND collection = ?`, uid, collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	if err := s.notify(ctx, uid, collection); err != nil {
		slog.WarnContext(ctx, "Change notification failed", "collection", collection, "error", err)
	}
	return nil
}

// Subscribe registers fn and delivers the current collection right away, so
// a change landing before the subscription attached is not lost until the
// next mutation.
func (s *SQLiteStore) Subscribe(uid, collection string, fn SnapshotFunc) (func(), error) {
	cancel := s.hub.subscribe(uid, collection, fn)

	docs, err := s.List(context.Background(), uid, collection)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	fn(docs)

	return cancel, nil
}

// notify re-reads the full collection and pushes it to subscribers, keeping
// the one-snapshot-per-change contract.
func (s *SQLiteStore) notify(ctx context.Context, uid, collection string) error {
	docs, err := s.List(ctx, uid, collection)
	if err != nil {
		return err
	}
	s.hub.publish(uid, collection, docs)
	return nil
}
