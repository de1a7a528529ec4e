package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengov-labs/govassist/internal/analyze"
	"github.com/opengov-labs/govassist/internal/consolidate"
	"github.com/opengov-labs/govassist/internal/extract"
	"github.com/opengov-labs/govassist/internal/pipeline"
	"github.com/opengov-labs/govassist/internal/polkassembly"
	"github.com/opengov-labs/govassist/internal/ratelimit"
	"github.com/opengov-labs/govassist/internal/route"
	"github.com/opengov-labs/govassist/internal/store"
)

// newTestEnv builds an assistantEnv with no model client (degraded mode), a
// SQLite store in a temp dir, and a Polkassembly client pointed at a local
// stub server.
func newTestEnv(t *testing.T, requestsPerWindow int) *assistantEnv {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"title": "Test proposal",
			"content": "Some proposal body",
			"createdAt": "2025-07-18T09:30:00.000Z",
			"onChainInfo": {"status": "Deciding", "beneficiaries": [{"amount": "10000000000", "assetId": "0"}]}
		}`)
	}))
	t.Cleanup(upstream.Close)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "govassist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(t.Context()))

	fetcher := polkassembly.NewClient(upstream.URL, polkassembly.WithRatePerSec(0))
	merger := extract.NewMerger(extract.NewLLMExtractor(nil, "", 0))
	router := route.NewRouter(nil, nil, "", 0, 5)
	dispatcher := analyze.NewDispatcher(nil, "", 0)

	return &assistantEnv{
		Store:     st,
		Limiter:   ratelimit.New(st, requestsPerWindow, 24),
		Assistant: pipeline.New(merger, router, consolidate.New(fetcher), dispatcher),
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	handler := newAPIHandler(newTestEnv(t, 20))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestExtractEndpoint(t *testing.T) {
	handler := newAPIHandler(newTestEnv(t, 20))

	rec := postJSON(t, handler, "/v1/extract", map[string]string{
		"prompt": "Compare proposal 1679 and 1680",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		IDs   []string `json:"ids"`
		Links []string `json:"links"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"1679", "1680"}, result.IDs)
	assert.Empty(t, result.Links)
}

func TestExtractEndpointRequiresPrompt(t *testing.T) {
	handler := newAPIHandler(newTestEnv(t, 20))

	rec := postJSON(t, handler, "/v1/extract", map[string]string{"prompt": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/extract", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	handler := newAPIHandler(newTestEnv(t, 20))

	rec := postJSON(t, handler, "/v1/analyze", map[string]string{
		"prompt":     "Summarize proposal 1679",
		"user_email": "alice@example.com",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		IDs               []string `json:"ids"`
		Analysis          string   `json:"analysis"`
		RemainingRequests int      `json:"remaining_requests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"1679"}, resp.IDs)
	assert.Equal(t, 19, resp.RemainingRequests)
	// Degraded model path still answers deterministically.
	assert.Contains(t, resp.Analysis, "Proposal 1679")
}

func TestAnalyzeEndpointRateLimited(t *testing.T) {
	handler := newAPIHandler(newTestEnv(t, 1))

	body := map[string]string{
		"prompt":     "Summarize proposal 1679",
		"user_email": "alice@example.com",
	}
	first := postJSON(t, handler, "/v1/analyze", body)
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, handler, "/v1/analyze", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "rate limit exceeded")
}

func TestChatEndpointLogsQuery(t *testing.T) {
	env := newTestEnv(t, 20)
	handler := newAPIHandler(env)

	rec := postJSON(t, handler, "/v1/chat", map[string]string{
		"prompt":     "What is proposal 1679 about?",
		"user_email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := env.Store.ListQueries(t.Context(), "alice@example.com", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "general-chat", entries[0].Endpoint)
	assert.True(t, entries[0].Success)
}

func TestAccountabilityEndpoint(t *testing.T) {
	handler := newAPIHandler(newTestEnv(t, 20))

	rec := postJSON(t, handler, "/v1/accountability", map[string]string{
		"prompt": "Check accountability of proposal 1679",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		IDs       []string `json:"ids"`
		Proposals []struct {
			CalculatedReward string `json:"calculated_reward"`
		} `json:"proposals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"1679"}, resp.IDs)
	require.Len(t, resp.Proposals, 1)
	assert.Equal(t, "1.00 DOT", resp.Proposals[0].CalculatedReward)
}
