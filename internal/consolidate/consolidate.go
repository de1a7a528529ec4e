// Package consolidate resolves extracted ids and links into a single
// id→type mapping and executes the grouped batch fetch against the
// proposal-data collaborator.
package consolidate

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opengov-labs/govassist/internal/extract"
	"github.com/opengov-labs/govassist/internal/model"
)

// Fetcher is the proposal-data collaborator contract. FetchMany returns one
// record per id in input order; per-item failures surface as error-tagged
// records, never as an error return.
type Fetcher interface {
	FetchMany(ctx context.Context, ids []string, typ model.ProposalType) []model.ProposalRecord
}

// Recognized link shapes. A link is a stronger signal than a bare number,
// so link-derived types overwrite text-derived defaults.
var (
	referendaLink = regexp.MustCompile(`/referenda/(\d+)/?(?:[?#]|$)`)
	postLink      = regexp.MustCompile(`/post/(\d+)/?(?:[?#]|$)`)
)

// Plan is the consolidated fetch plan for one prompt.
type Plan struct {
	// IDs is the final id list: every mapping key, numeric ids sorted
	// numerically first, non-numeric lexically after.
	IDs []string
	// Types maps each id to its resolved proposal type.
	Types map[string]model.ProposalType
	// groups holds per-type ids in first-seen order for batch fetching.
	groups map[model.ProposalType][]string
}

// Group returns the ids of the given type in first-seen order.
func (p *Plan) Group(typ model.ProposalType) []string {
	return p.groups[typ]
}

// Consolidator merges text ids with link-derived refs and runs the grouped
// batch fetch.
type Consolidator struct {
	fetcher Fetcher
}

// New creates a Consolidator around the given fetcher.
func New(fetcher Fetcher) *Consolidator {
	return &Consolidator{fetcher: fetcher}
}

// BuildPlan resolves a type for every id mentioned in the extraction result.
// Bare text ids get the prompt-wide default type; link-derived types always
// overwrite it, last write wins.
func BuildPlan(extraction model.ExtractionResult, prompt string) *Plan {
	return buildPlan(extraction, defaultType(prompt))
}

// BuildPlanFromDecision resolves a plan for a dynamic routing decision,
// merging the router's ids with the extraction result's ids and links. The
// decision's type, when set, replaces the prompt-derived default; link-derived
// types still win.
func BuildPlanFromDecision(decision model.RoutingDecision, extraction model.ExtractionResult, prompt string) *Plan {
	typ := decision.ProposalType
	if typ == "" {
		typ = defaultType(prompt)
	}
	merged := model.ExtractionResult{
		IDs:   append(append([]string(nil), decision.IDs...), extraction.IDs...),
		Links: extraction.Links,
	}
	return buildPlan(merged, typ)
}

// BuildPlanFromHits resolves a plan for search results, which carry their
// own per-hit type.
func BuildPlanFromHits(hits []model.SearchHit) *Plan {
	types := make(map[string]model.ProposalType)
	var order []string
	for _, hit := range hits {
		if hit.IndexID == "" {
			continue
		}
		if _, seen := types[hit.IndexID]; !seen {
			order = append(order, hit.IndexID)
		}
		types[hit.IndexID] = hit.ProposalType
	}

	groups := make(map[model.ProposalType][]string)
	for _, id := range order {
		groups[types[id]] = append(groups[types[id]], id)
	}

	ids := make([]string, len(order))
	copy(ids, order)
	extract.SortIDs(ids)

	return &Plan{IDs: ids, Types: types, groups: groups}
}

// defaultType is prompt-wide: one occurrence of the word "discussion"
// anywhere flips the default for every bare id in the prompt.
func defaultType(prompt string) model.ProposalType {
	if strings.Contains(strings.ToLower(prompt), "discussion") {
		return model.TypeDiscussion
	}
	return model.TypeReferendum
}

func buildPlan(extraction model.ExtractionResult, deflt model.ProposalType) *Plan {
	types := make(map[string]model.ProposalType)
	var order []string

	touch := func(id string, typ model.ProposalType) {
		if _, seen := types[id]; !seen {
			order = append(order, id)
		}
		types[id] = typ
	}

	for _, id := range extraction.IDs {
		touch(id, deflt)
	}

	for _, link := range extraction.Links {
		if m := referendaLink.FindStringSubmatch(link); m != nil {
			touch(m[1], model.TypeReferendum)
			continue
		}
		if m := postLink.FindStringSubmatch(link); m != nil {
			touch(m[1], model.TypeDiscussion)
		}
	}

	groups := make(map[model.ProposalType][]string)
	for _, id := range order {
		typ := types[id]
		groups[typ] = append(groups[typ], id)
	}

	ids := make([]string, len(order))
	copy(ids, order)
	extract.SortIDs(ids)

	return &Plan{
		IDs:    ids,
		Types:  types,
		groups: groups,
	}
}

// Fetch runs one batch fetch per type group concurrently and flattens the
// results. Within a type, record order follows the group's input order; no
// cross-type order is promised. A failed id yields an error-tagged record
// and never blocks sibling fetches.
func (c *Consolidator) Fetch(ctx context.Context, plan *Plan) []model.ProposalRecord {
	byType := make(map[model.ProposalType][]model.ProposalRecord, len(plan.groups))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for typ, ids := range plan.groups {
		g.Go(func() error {
			records := c.fetcher.FetchMany(gctx, ids, typ)
			mu.Lock()
			byType[typ] = records
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var records []model.ProposalRecord
	for _, typ := range []model.ProposalType{model.TypeReferendum, model.TypeDiscussion} {
		records = append(records, byType[typ]...)
	}

	zap.L().Info("consolidate: batch fetch complete",
		zap.Int("types", len(plan.groups)),
		zap.Int("records", len(records)),
	)
	return records
}
