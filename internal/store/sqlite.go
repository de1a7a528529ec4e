package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS user_rate_limits (
	user_email    TEXT PRIMARY KEY,
	request_count INTEGER NOT NULL DEFAULT 0,
	reset_time    DATETIME NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS query_history (
	id                 TEXT PRIMARY KEY,
	user_email         TEXT NOT NULL,
	endpoint           TEXT NOT NULL,
	prompt             TEXT NOT NULL,
	result             TEXT,
	success            INTEGER NOT NULL DEFAULT 1,
	error_message      TEXT,
	processing_time_ms INTEGER,
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_rate_limits_reset_time ON user_rate_limits(reset_time);
CREATE INDEX IF NOT EXISTS idx_query_history_user_created ON query_history(user_email, created_at);
CREATE INDEX IF NOT EXISTS idx_query_history_endpoint_created ON query_history(endpoint, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetUserLimit(ctx context.Context, userEmail string) (*UserLimit, error) {
	var limit UserLimit
	err := s.db.QueryRowContext(ctx,
		`SELECT user_email, request_count, reset_time, updated_at FROM user_rate_limits WHERE user_email = ?`,
		userEmail,
	).Scan(&limit.UserEmail, &limit.RequestCount, &limit.ResetTime, &limit.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get user limit")
	}
	return &limit, nil
}

func (s *SQLiteStore) UpsertUserLimit(ctx context.Context, limit *UserLimit) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_rate_limits (user_email, request_count, reset_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_email) DO UPDATE SET
			request_count = excluded.request_count,
			reset_time = excluded.reset_time,
			updated_at = excluded.updated_at`,
		limit.UserEmail, limit.RequestCount, limit.ResetTime.UTC(), now, now,
	)
	return eris.Wrap(err, "sqlite: upsert user limit")
}

func (s *SQLiteStore) DeleteExpiredLimits(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM user_rate_limits WHERE reset_time <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired limits")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: delete expired limits")
}

func (s *SQLiteStore) LogQuery(ctx context.Context, entry *QueryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_history (id, user_email, endpoint, prompt, result, success, error_message, processing_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserEmail, entry.Endpoint, entry.Prompt, entry.Result,
		entry.Success, entry.ErrorMessage, entry.ProcessingTimeMS, entry.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: log query")
}

func (s *SQLiteStore) ListQueries(ctx context.Context, userEmail string, limit int) ([]QueryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_email, endpoint, prompt, result, success, error_message, processing_time_ms, created_at
		 FROM query_history WHERE user_email = ? ORDER BY created_at DESC LIMIT ?`,
		userEmail, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queries")
	}
	defer rows.Close()

	var entries []QueryLog
	for rows.Next() {
		var e QueryLog
		if err := rows.Scan(&e.ID, &e.UserEmail, &e.Endpoint, &e.Prompt, &e.Result,
			&e.Success, &e.ErrorMessage, &e.ProcessingTimeMS, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan query")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list queries")
}

func (s *SQLiteStore) DeleteOldQueries(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM query_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete old queries")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: delete old queries")
}
