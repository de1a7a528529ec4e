package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/pkg/anthropic"
)

const idExtractionPrompt = `You are an expert at extracting custom identifiers (IDs) from text.

IMPORTANT RULES:
1. Extract standalone IDs/numbers that are NOT part of URLs
2. If text contains URLs like "https://example.com/referenda/1234", do NOT extract "1234" as an ID
3. Only extract IDs that appear as standalone identifiers (e.g., "proposal 1679", "ID123")

Extract IDs that are:
- Alphanumeric codes (e.g., ID123, USER456, PROD789)
- Standalone proposal numbers (e.g., "proposal 1679")
- Custom identifiers that are NOT embedded in URLs

Return ONLY a JSON array of the extracted IDs. If no standalone IDs are found, return an empty array.
Do NOT extract numbers or identifiers that are part of URLs.

Text to analyze: %s

Response (JSON array only):`

var quotedToken = regexp.MustCompile(`"([A-Za-z0-9_]*\d+[A-Za-z0-9_]*)"`)

// LLMExtractor delegates identifier extraction to the language model, with
// the rule-based extractor as its fallback for every failure mode.
//
// The capability flag is set once at construction: an extractor built without
// a usable client stays degraded for its whole lifetime and routes every call
// straight to the heuristic rules.
type LLMExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	ready     bool
}

// NewLLMExtractor creates an LLMExtractor. A nil client or empty model puts
// the extractor in degraded mode permanently.
func NewLLMExtractor(client anthropic.Client, model string, maxTokens int64) *LLMExtractor {
	ready := client != nil && model != ""
	if !ready {
		zap.L().Warn("extract: model client unavailable, using rule-based extraction only")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &LLMExtractor{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		ready:     ready,
	}
}

// ExtractIDs returns standalone identifiers found in text. It never fails:
// model errors, timeouts, and unparseable output all resolve through the
// heuristic extractor or token scraping.
func (e *LLMExtractor) ExtractIDs(ctx context.Context, text string) []string {
	if !e.ready {
		return HeuristicIDs(text)
	}

	raw, err := anthropic.Complete(ctx, e.client, e.model, fmt.Sprintf(idExtractionPrompt, text), e.maxTokens)
	if err != nil {
		zap.L().Warn("extract: model extraction failed, falling back to rules", zap.Error(err))
		return HeuristicIDs(text)
	}

	ids, err := parseIDArray(raw)
	if err != nil {
		zap.L().Debug("extract: model response is not a JSON array, scraping tokens",
			zap.String("response", raw))
		ids = scrapeIDs(raw)
	}

	deduped := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := deduped[id]; seen {
			continue
		}
		deduped[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// parseIDArray decodes the first [...] span of the response as a JSON array.
func parseIDArray(raw string) ([]string, error) {
	content := strings.TrimSpace(raw)
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	var items []any
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			ids = append(ids, v)
		case float64:
			ids = append(ids, fmt.Sprintf("%.0f", v))
		}
	}
	return ids, nil
}

// scrapeIDs recovers identifier tokens from a free-text model response when
// JSON decoding failed.
func scrapeIDs(raw string) []string {
	var ids []string
	for _, m := range quotedToken.FindAllStringSubmatch(raw, -1) {
		ids = append(ids, m[1])
	}
	if len(ids) > 0 {
		return ids
	}

	seen := make(map[string]struct{})
	for _, p := range identPatterns {
		for _, m := range p.FindAllString(raw, -1) {
			if _, stop := stopWords[strings.ToLower(m)]; stop {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			ids = append(ids, m)
		}
	}
	return ids
}
