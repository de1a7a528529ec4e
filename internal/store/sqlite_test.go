package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "govassist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_UserLimitRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	limit, err := s.GetUserLimit(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, limit, "unknown user has no record")

	reset := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	require.NoError(t, s.UpsertUserLimit(ctx, &UserLimit{
		UserEmail:    "alice@example.com",
		RequestCount: 1,
		ResetTime:    reset,
	}))

	limit, err = s.GetUserLimit(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, limit)
	assert.Equal(t, 1, limit.RequestCount)
	assert.True(t, limit.ResetTime.Equal(reset))

	// Second upsert overwrites the counter.
	require.NoError(t, s.UpsertUserLimit(ctx, &UserLimit{
		UserEmail:    "alice@example.com",
		RequestCount: 2,
		ResetTime:    reset,
	}))
	limit, err = s.GetUserLimit(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, limit.RequestCount)
}

func TestSQLiteStore_DeleteExpiredLimits(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertUserLimit(ctx, &UserLimit{
		UserEmail:    "expired@example.com",
		RequestCount: 20,
		ResetTime:    time.Now().UTC().Add(-time.Hour),
	}))
	require.NoError(t, s.UpsertUserLimit(ctx, &UserLimit{
		UserEmail:    "active@example.com",
		RequestCount: 3,
		ResetTime:    time.Now().UTC().Add(time.Hour),
	}))

	n, err := s.DeleteExpiredLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	limit, err := s.GetUserLimit(ctx, "active@example.com")
	require.NoError(t, err)
	assert.NotNil(t, limit)
}

func TestSQLiteStore_QueryHistory(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, prompt := range []string{"first", "second", "third"} {
		require.NoError(t, s.LogQuery(ctx, &QueryLog{
			UserEmail:        "alice@example.com",
			Endpoint:         "analyze",
			Prompt:           prompt,
			Success:          true,
			ProcessingTimeMS: 100,
		}))
	}
	require.NoError(t, s.LogQuery(ctx, &QueryLog{
		UserEmail:    "bob@example.com",
		Endpoint:     "general-chat",
		Prompt:       "unrelated",
		Success:      false,
		ErrorMessage: "rate limited",
	}))

	entries, err := s.ListQueries(ctx, "alice@example.com", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "alice@example.com", e.UserEmail)
		assert.NotEmpty(t, e.ID)
	}

	all, err := s.ListQueries(ctx, "alice@example.com", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_DeleteOldQueries(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	old := &QueryLog{
		UserEmail: "alice@example.com",
		Endpoint:  "analyze",
		Prompt:    "ancient",
		Success:   true,
		CreatedAt: time.Now().UTC().Add(-60 * 24 * time.Hour),
	}
	require.NoError(t, s.LogQuery(ctx, old))
	require.NoError(t, s.LogQuery(ctx, &QueryLog{
		UserEmail: "alice@example.com",
		Endpoint:  "analyze",
		Prompt:    "recent",
		Success:   true,
	}))

	n, err := s.DeleteOldQueries(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := s.ListQueries(ctx, "alice@example.com", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].Prompt)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
