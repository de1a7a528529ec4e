// Package pipeline wires extraction, routing, consolidation, fetching,
// reward calculation and analysis into the operations the API and CLI
// expose.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/analyze"
	"github.com/opengov-labs/govassist/internal/consolidate"
	"github.com/opengov-labs/govassist/internal/extract"
	"github.com/opengov-labs/govassist/internal/model"
	"github.com/opengov-labs/govassist/internal/reward"
	"github.com/opengov-labs/govassist/internal/route"
)

// noMatchMessage answers a keyword search that found nothing.
const noMatchMessage = "No proposals matching your question could be found. Try mentioning a proposal id or link directly."

// Assistant runs end-to-end governance queries.
type Assistant struct {
	merger       *extract.Merger
	router       *route.Router
	consolidator *consolidate.Consolidator
	dispatcher   *analyze.Dispatcher
}

// Result is the assembled response for one prompt.
type Result struct {
	IDs       []string               `json:"ids"`
	Links     []string               `json:"links"`
	Source    model.DataSource       `json:"source,omitempty"`
	Proposals []model.ProposalRecord `json:"proposals,omitempty"`
	Analysis  string                 `json:"analysis,omitempty"`
}

// New creates an Assistant from its collaborators.
func New(merger *extract.Merger, router *route.Router, consolidator *consolidate.Consolidator, dispatcher *analyze.Dispatcher) *Assistant {
	return &Assistant{
		merger:       merger,
		router:       router,
		consolidator: consolidator,
		dispatcher:   dispatcher,
	}
}

// Extract runs id and link extraction only.
func (a *Assistant) Extract(ctx context.Context, prompt string) model.ExtractionResult {
	return a.merger.Extract(ctx, prompt)
}

// Analyze extracts proposal refs from the prompt, fetches them and returns
// a summary or comparison.
func (a *Assistant) Analyze(ctx context.Context, prompt string) *Result {
	return a.run(ctx, prompt, analyze.Analysis, "")
}

// Accountability scores the referenced proposals against the governance
// rubric.
func (a *Assistant) Accountability(ctx context.Context, prompt string) *Result {
	return a.run(ctx, prompt, analyze.Accountability, "")
}

func (a *Assistant) run(ctx context.Context, prompt string, task analyze.Task, question string) *Result {
	extraction := a.merger.Extract(ctx, prompt)
	plan := consolidate.BuildPlan(extraction, prompt)

	records := a.consolidator.Fetch(ctx, plan)
	reward.Augment(records)

	analysis := a.dispatcher.Run(ctx, task, records, question)
	return &Result{
		IDs:       plan.IDs,
		Links:     extraction.Links,
		Proposals: records,
		Analysis:  analysis,
	}
}

// Chat answers a free-form question. The router decides between fetching
// the ids the prompt names and searching the proposal index by keyword.
func (a *Assistant) Chat(ctx context.Context, prompt string) *Result {
	decision := a.router.Route(ctx, prompt)

	var plan *consolidate.Plan
	links := []string{}
	if decision.Source == model.SourceSearch {
		if len(decision.Hits) == 0 {
			zap.L().Info("pipeline: search produced no hits", zap.String("keywords", decision.Keywords))
			return &Result{IDs: []string{}, Links: links, Source: decision.Source, Analysis: noMatchMessage}
		}
		plan = consolidate.BuildPlanFromHits(decision.Hits)
	} else {
		extraction := a.merger.Extract(ctx, prompt)
		links = extraction.Links
		plan = consolidate.BuildPlanFromDecision(decision, extraction, prompt)
	}

	records := a.consolidator.Fetch(ctx, plan)
	reward.Augment(records)

	analysis := a.dispatcher.Run(ctx, analyze.Chat, records, prompt)
	return &Result{
		IDs:       plan.IDs,
		Links:     links,
		Source:    decision.Source,
		Proposals: records,
		Analysis:  analysis,
	}
}
