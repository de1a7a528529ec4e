package extract

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opengov-labs/govassist/internal/model"
)

// Merger runs the pattern and LLM extractors concurrently and merges their
// output into a single ExtractionResult.
type Merger struct {
	llm *LLMExtractor
}

// NewMerger creates a Merger around the given LLM extractor.
func NewMerger(llm *LLMExtractor) *Merger {
	return &Merger{llm: llm}
}

// Extract runs both extractors in parallel and returns the deduplicated,
// sorted union of their results. Neither extractor can fail, so the merge
// always produces a result; total latency is the slower of the two calls.
func (m *Merger) Extract(ctx context.Context, text string) model.ExtractionResult {
	var (
		ids   []string
		links []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids = m.llm.ExtractIDs(gctx, text)
		return nil
	})
	g.Go(func() error {
		links = ExtractLinks(text)
		return nil
	})
	_ = g.Wait()

	result := model.ExtractionResult{
		IDs:   dedupe(ids),
		Links: dedupe(links),
	}
	SortIDs(result.IDs)
	sort.Strings(result.Links)

	zap.L().Info("extract: merge complete",
		zap.Strings("ids", result.IDs),
		zap.Strings("links", result.Links),
	)
	return result
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
