package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/analyze"
	"github.com/opengov-labs/govassist/internal/consolidate"
	"github.com/opengov-labs/govassist/internal/extract"
	"github.com/opengov-labs/govassist/internal/pipeline"
	"github.com/opengov-labs/govassist/internal/polkassembly"
	"github.com/opengov-labs/govassist/internal/ratelimit"
	"github.com/opengov-labs/govassist/internal/route"
	"github.com/opengov-labs/govassist/internal/search"
	"github.com/opengov-labs/govassist/internal/store"
	"github.com/opengov-labs/govassist/pkg/anthropic"
)

// assistantEnv holds the initialized clients and services the serve/ask
// commands need.
type assistantEnv struct {
	Store     store.Store
	Limiter   *ratelimit.Limiter
	Assistant *pipeline.Assistant
}

// Close releases resources held by the environment.
func (ae *assistantEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initAssistant sets up the store, the model client, the search and proposal
// collaborators, and the assembled pipeline. An absent Anthropic key is not
// fatal: extraction and routing fall back to their regex strategies and
// analysis degrades to placeholder text. Callers should defer env.Close().
func initAssistant(ctx context.Context) (*assistantEnv, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	var model anthropic.Client
	if cfg.Anthropic.Key != "" {
		model = anthropic.NewClient(cfg.Anthropic.Key,
			anthropic.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second))
	} else {
		zap.L().Warn("no anthropic key configured, running in degraded mode")
	}

	var searcher search.Searcher
	if cfg.Search.AppID != "" && cfg.Search.APIKey != "" {
		searcher = search.NewAlgolia(cfg.Search.AppID, cfg.Search.APIKey, cfg.Search.Index)
	} else {
		zap.L().Warn("no algolia credentials configured, keyword search disabled")
	}

	fetcher := polkassembly.NewClient(cfg.Polkassembly.BaseURL,
		polkassembly.WithTimeout(time.Duration(cfg.Polkassembly.TimeoutSecs)*time.Second),
		polkassembly.WithRatePerSec(cfg.Polkassembly.RatePerSec))

	merger := extract.NewMerger(extract.NewLLMExtractor(model, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens))
	router := route.NewRouter(model, searcher, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.Search.ResultCount)
	consolidator := consolidate.New(fetcher)
	dispatcher := analyze.NewDispatcher(model, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)

	return &assistantEnv{
		Store:     st,
		Limiter:   ratelimit.New(st, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowHours),
		Assistant: pipeline.New(merger, router, consolidator, dispatcher),
	}, nil
}
