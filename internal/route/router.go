// Package route classifies prompts into a fetch strategy: direct id-based
// lookup against the proposal API, or keyword search against the search
// index. Classification is delegated to the language model with a
// deterministic regex fallback.
package route

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/model"
	"github.com/opengov-labs/govassist/internal/search"
	"github.com/opengov-labs/govassist/pkg/anthropic"
)

const routingPrompt = `Analyze the following user prompt and determine the routing strategy.

User Prompt: "%s"

ROUTING RULES:
1. DYNAMIC - If the prompt contains specific proposal IDs, referenda numbers, or discussion IDs:
   - Examples: "proposal ID 1679", "proposal 1622", "referenda 1622", "referendum 1622", "discussion 1104"
   - Look for patterns like: number + (proposal|referenda|referendum|discussion) OR (proposal|referenda|referendum|discussion) + number

2. ALGOLIA - If the prompt is asking about topics, keywords, or general searches:
   - Examples: "Tell me about clarys proposal", "subwallet development proposal", "treasury proposals about AI", "AI proposals"
   - Extract meaningful keywords for search

IMPORTANT INSTRUCTIONS:
- Extract ALL proposal IDs mentioned in the prompt
- For proposal type: use "Discussion" if "discussion" is mentioned, otherwise use "ReferendumV2"
- For keywords: extract 2-5 most relevant search terms, ignore stop words
- Return ONLY a valid JSON object, no other text

RESPONSE FORMAT (JSON only):
{
    "data_source": "dynamic" or "algolia",
    "ID": [list of extracted IDs as strings] or [],
    "proposal_type": "ReferendumV2" or "Discussion" or "",
    "keywords": "extracted keywords" or ""
}`

var idContextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:proposal|referenda?|referendum|discussion)\s+(?:id\s+)?(\d+)\b`),
	regexp.MustCompile(`(?i)\b(\d+)\s*(?:proposal|referenda?|referendum|discussion)\b`),
	regexp.MustCompile(`(?i)\b(?:id|#)\s*(\d+)\b`),
}

// keywordStopWords are stripped from prompts before keyword extraction.
var keywordStopWords = map[string]struct{}{
	"tell": {}, "me": {}, "about": {}, "the": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// Router decides how a prompt should be satisfied. The capability flag is
// set once at construction; without a usable client every call takes the
// regex fallback.
type Router struct {
	client      anthropic.Client
	searcher    search.Searcher
	model       string
	maxTokens   int64
	resultCount int
	ready       bool
}

// NewRouter creates a Router. A nil client degrades routing to the regex
// strategy permanently; a nil searcher disables search post-processing.
func NewRouter(client anthropic.Client, searcher search.Searcher, modelName string, maxTokens int64, resultCount int) *Router {
	ready := client != nil && modelName != ""
	if !ready {
		zap.L().Warn("route: model client unavailable, using fallback routing only")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if resultCount <= 0 {
		resultCount = 10
	}
	return &Router{
		client:      client,
		searcher:    searcher,
		model:       modelName,
		maxTokens:   maxTokens,
		resultCount: resultCount,
		ready:       ready,
	}
}

// Route classifies the prompt and, for search decisions with keywords,
// immediately performs the keyword search and attaches the hits. It never
// fails; every model-path problem resolves through the regex fallback.
func (r *Router) Route(ctx context.Context, prompt string) model.RoutingDecision {
	decision := r.classify(ctx, prompt)

	if decision.Source == model.SourceSearch && decision.Keywords != "" && r.searcher != nil {
		hits, err := r.searcher.Search(ctx, decision.Keywords, r.resultCount)
		if err != nil {
			zap.L().Warn("route: keyword search failed", zap.Error(err))
		} else {
			decision.Hits = hits
		}
	}
	if decision.Hits == nil {
		decision.Hits = []model.SearchHit{}
	}

	zap.L().Info("route: decision",
		zap.String("source", string(decision.Source)),
		zap.Strings("ids", decision.IDs),
		zap.String("keywords", decision.Keywords),
		zap.Int("hits", len(decision.Hits)),
	)
	return decision
}

func (r *Router) classify(ctx context.Context, prompt string) model.RoutingDecision {
	if !r.ready {
		return fallbackRoute(prompt)
	}

	raw, err := anthropic.Complete(ctx, r.client, r.model, fmt.Sprintf(routingPrompt, prompt), r.maxTokens)
	if err != nil {
		zap.L().Warn("route: model classification failed, using fallback", zap.Error(err))
		return fallbackRoute(prompt)
	}

	decision, err := parseRoutingResponse(raw)
	if err != nil {
		zap.L().Warn("route: unparseable model response, using fallback",
			zap.String("response", raw), zap.Error(err))
		return fallbackRoute(prompt)
	}
	return decision
}

// parseRoutingResponse decodes the model's JSON routing contract, stripping
// any markdown code fence first.
func parseRoutingResponse(raw string) (model.RoutingDecision, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var resp struct {
		DataSource   string   `json:"data_source"`
		ID           []string `json:"ID"`
		ProposalType string   `json:"proposal_type"`
		Keywords     string   `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return model.RoutingDecision{}, err
	}

	decision := model.RoutingDecision{
		Source:   model.SourceSearch,
		IDs:      resp.ID,
		Keywords: resp.Keywords,
	}
	if resp.DataSource == string(model.SourceDynamic) {
		decision.Source = model.SourceDynamic
	}
	if decision.IDs == nil {
		decision.IDs = []string{}
	}
	switch resp.ProposalType {
	case string(model.TypeDiscussion):
		decision.ProposalType = model.TypeDiscussion
	case string(model.TypeReferendum):
		decision.ProposalType = model.TypeReferendum
	}
	return decision, nil
}

// fallbackRoute is the deterministic regex strategy used whenever the model
// path is unavailable or returns garbage.
func fallbackRoute(prompt string) model.RoutingDecision {
	ids := extractContextIDs(prompt)

	if len(ids) > 0 {
		typ := model.TypeReferendum
		if strings.Contains(strings.ToLower(prompt), "discussion") {
			typ = model.TypeDiscussion
		}
		return model.RoutingDecision{
			Source:       model.SourceDynamic,
			IDs:          ids,
			ProposalType: typ,
			Keywords:     "",
		}
	}

	return model.RoutingDecision{
		Source:   model.SourceSearch,
		IDs:      []string{},
		Keywords: extractKeywords(prompt),
	}
}

// extractContextIDs finds numeric ids adjacent to proposal-ish words,
// deduplicated and sorted numerically.
func extractContextIDs(prompt string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, p := range idContextPatterns {
		for _, m := range p.FindAllStringSubmatch(prompt, -1) {
			if _, dup := seen[m[1]]; dup {
				continue
			}
			seen[m[1]] = struct{}{}
			ids = append(ids, m[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids
}

// extractKeywords joins up to the first 5 non-stopword tokens of the
// lowercased prompt. An empty result is a dead end for the caller, not a
// reason to retry.
func extractKeywords(prompt string) string {
	words := wordPattern.FindAllString(strings.ToLower(prompt), -1)
	keywords := make([]string, 0, 5)
	for _, w := range words {
		if _, stop := keywordStopWords[w]; stop {
			continue
		}
		if len(w) <= 2 {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 5 {
			break
		}
	}
	return strings.Join(keywords, " ")
}
