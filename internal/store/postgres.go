package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool abstracts the pgxpool surface the store uses so tests can swap in
// pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS user_rate_limits (
	user_email    TEXT PRIMARY KEY,
	request_count INTEGER NOT NULL DEFAULT 0,
	reset_time    TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS query_history (
	id                 TEXT PRIMARY KEY,
	user_email         TEXT NOT NULL,
	endpoint           TEXT NOT NULL,
	prompt             TEXT NOT NULL,
	result             TEXT,
	success            BOOLEAN NOT NULL DEFAULT TRUE,
	error_message      TEXT,
	processing_time_ms BIGINT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_user_rate_limits_reset_time ON user_rate_limits(reset_time);
CREATE INDEX IF NOT EXISTS idx_query_history_user_created ON query_history(user_email, created_at);
CREATE INDEX IF NOT EXISTS idx_query_history_endpoint_created ON query_history(endpoint, created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetUserLimit(ctx context.Context, userEmail string) (*UserLimit, error) {
	var limit UserLimit
	err := s.pool.QueryRow(ctx,
		`SELECT user_email, request_count, reset_time, updated_at FROM user_rate_limits WHERE user_email = $1`,
		userEmail,
	).Scan(&limit.UserEmail, &limit.RequestCount, &limit.ResetTime, &limit.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get user limit")
	}
	return &limit, nil
}

func (s *PostgresStore) UpsertUserLimit(ctx context.Context, limit *UserLimit) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_rate_limits (user_email, request_count, reset_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (user_email) DO UPDATE SET
			request_count = EXCLUDED.request_count,
			reset_time = EXCLUDED.reset_time,
			updated_at = EXCLUDED.updated_at`,
		limit.UserEmail, limit.RequestCount, limit.ResetTime.UTC(), now,
	)
	return eris.Wrap(err, "postgres: upsert user limit")
}

func (s *PostgresStore) DeleteExpiredLimits(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_rate_limits WHERE reset_time <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired limits")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) LogQuery(ctx context.Context, entry *QueryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO query_history (id, user_email, endpoint, prompt, result, success, error_message, processing_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.UserEmail, entry.Endpoint, entry.Prompt, entry.Result,
		entry.Success, entry.ErrorMessage, entry.ProcessingTimeMS, entry.CreatedAt,
	)
	return eris.Wrap(err, "postgres: log query")
}

func (s *PostgresStore) ListQueries(ctx context.Context, userEmail string, limit int) ([]QueryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_email, endpoint, prompt, result, success, error_message, processing_time_ms, created_at
		 FROM query_history WHERE user_email = $1 ORDER BY created_at DESC LIMIT $2`,
		userEmail, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list queries")
	}
	defer rows.Close()

	var entries []QueryLog
	for rows.Next() {
		var e QueryLog
		if err := rows.Scan(&e.ID, &e.UserEmail, &e.Endpoint, &e.Prompt, &e.Result,
			&e.Success, &e.ErrorMessage, &e.ProcessingTimeMS, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan query")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list queries")
}

func (s *PostgresStore) DeleteOldQueries(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `DELETE FROM query_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete old queries")
	}
	return tag.RowsAffected(), nil
}
