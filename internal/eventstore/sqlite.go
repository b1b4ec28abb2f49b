package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/margin/internal/build"
	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
	"git.home.luguber.info/inful/margin/internal/logfields"
)

// SQLiteStore records build events. It implements build.Observer.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

// Open creates or opens the history database at dbPath.
// Use ":memory:" for an in-memory database.
func Open(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "could not open event store database").
			WithContext("path", dbPath).Build()
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to initialize event store schema").Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		epoch INTEGER NOT NULL,
		at INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_build_id ON events(build_id);
	CREATE INDEX IF NOT EXISTS idx_at ON events(at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one event.
func (s *SQLiteStore) Append(ctx context.Context, ev build.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to marshal event payload").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (build_id, event_type, epoch, at, payload) VALUES (?, ?, ?, ?, ?)",
		ev.BuildID, string(ev.Type), int64(ev.Epoch), ev.At.UnixNano(), payload,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to append event to store").
			WithContext("build_id", ev.BuildID).Build()
	}
	return nil
}

// OnBuildEvent implements build.Observer. Storage failures are logged.
func (s *SQLiteStore) OnBuildEvent(ctx context.Context, ev build.Event) {
	// The build context may already be cancelled when its final event arrives.
	if err := s.Append(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("Failed to record build event",
			logfields.BuildID(ev.BuildID),
			slog.String("type", string(ev.Type)),
			logfields.Error(err))
	}
}

// ByBuild returns every event of one build in insertion order.
func (s *SQLiteStore) ByBuild(ctx context.Context, buildID string) ([]build.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM events WHERE build_id = ? ORDER BY id", buildID)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to query events from store").Build()
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// Recent returns the events of the newest limit builds, oldest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]build.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM events
		WHERE build_id IN (
			SELECT build_id FROM events GROUP BY build_id ORDER BY MAX(id) DESC LIMIT ?
		)
		ORDER BY id`, limit)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to query events from store").Build()
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]build.Event, error) {
	var events []build.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to scan event rows").Build()
		}
		var ev build.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to unmarshal event payload").Build()
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to iterate event rows").Build()
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
