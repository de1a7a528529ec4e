// Package store persists per-user rate limit state and query history.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// UserLimit is one user's sliding-window counter.
type UserLimit struct {
	UserEmail    string    `json:"user_email"`
	RequestCount int       `json:"request_count"`
	ResetTime    time.Time `json:"reset_time"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QueryLog is one recorded API interaction.
type QueryLog struct {
	ID               string    `json:"id"`
	UserEmail        string    `json:"user_email"`
	Endpoint         string    `json:"endpoint"`
	Prompt           string    `json:"prompt"`
	Result           string    `json:"result,omitempty"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ProcessingTimeMS int64     `json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store defines the persistence interface for rate limiting and analytics.
type Store interface {
	// Rate limits
	GetUserLimit(ctx context.Context, userEmail string) (*UserLimit, error)
	UpsertUserLimit(ctx context.Context, limit *UserLimit) error
	DeleteExpiredLimits(ctx context.Context) (int64, error)

	// Query history
	LogQuery(ctx context.Context, entry *QueryLog) error
	ListQueries(ctx context.Context, userEmail string, limit int) ([]QueryLog, error)
	DeleteOldQueries(ctx context.Context, olderThan time.Duration) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver, "postgres" or "sqlite".
func Open(ctx context.Context, driver, databaseURL, sqlitePath string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, databaseURL, nil)
	case "sqlite", "":
		return NewSQLite(sqlitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
