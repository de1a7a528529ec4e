package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengov-labs/govassist/internal/analyze"
	"github.com/opengov-labs/govassist/internal/consolidate"
	"github.com/opengov-labs/govassist/internal/extract"
	"github.com/opengov-labs/govassist/internal/model"
	"github.com/opengov-labs/govassist/internal/route"
	"github.com/opengov-labs/govassist/pkg/anthropic"
)

type stubModel struct {
	text string
}

func (s *stubModel) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.text}},
	}, nil
}

type stubSearcher struct {
	hits []model.SearchHit
}

func (s *stubSearcher) Search(context.Context, string, int) ([]model.SearchHit, error) {
	return s.hits, nil
}

type stubFetcher struct {
	mu    sync.Mutex
	calls map[model.ProposalType][]string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{calls: make(map[model.ProposalType][]string)}
}

func (f *stubFetcher) FetchMany(_ context.Context, ids []string, typ model.ProposalType) []model.ProposalRecord {
	f.mu.Lock()
	f.calls[typ] = append([]string(nil), ids...)
	f.mu.Unlock()

	records := make([]model.ProposalRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, model.ProposalRecord{
			ID:            id,
			Type:          typ,
			Title:         "Proposal " + id,
			Status:        "Deciding",
			Beneficiaries: []model.Beneficiary{{Amount: "10000000000", AssetID: "0"}},
		})
	}
	return records
}

// newAssistant builds an Assistant with a degraded id extractor, a router
// answering routerText, a stub fetcher and a dispatcher answering
// analysisText.
func newAssistant(routerText, analysisText string, searcher *stubSearcher) (*Assistant, *stubFetcher) {
	merger := extract.NewMerger(extract.NewLLMExtractor(nil, "", 0))
	router := route.NewRouter(&stubModel{text: routerText}, searcher, "claude-haiku-4-5-20251001", 1024, 5)
	fetcher := newStubFetcher()
	consolidator := consolidate.New(fetcher)
	dispatcher := analyze.NewDispatcher(&stubModel{text: analysisText}, "claude-haiku-4-5-20251001", 4096)
	return New(merger, router, consolidator, dispatcher), fetcher
}

func TestAnalyzeCompareScenario(t *testing.T) {
	a, fetcher := newAssistant("{}", "## Comparison of 1679 and 1680", nil)

	result := a.Analyze(context.Background(), "Compare proposal 1679 and 1680")

	assert.Equal(t, []string{"1679", "1680"}, result.IDs)
	assert.Empty(t, result.Links)
	assert.Equal(t, "## Comparison of 1679 and 1680", result.Analysis)

	// Both ids go out in one referendum batch; reward gets filled in.
	assert.Equal(t, []string{"1679", "1680"}, fetcher.calls[model.TypeReferendum])
	require.Len(t, result.Proposals, 2)
	assert.Equal(t, "1.00 DOT", result.Proposals[0].CalculatedReward)
}

func TestAnalyzeNoIdsReturnsNoDataMessage(t *testing.T) {
	a, fetcher := newAssistant("{}", "unused", nil)

	result := a.Analyze(context.Background(), "tell me about governance in general, no numbers here")

	assert.Empty(t, result.IDs)
	assert.Empty(t, fetcher.calls)
	assert.Equal(t, "No valid proposals could be analyzed.", result.Analysis)
}

func TestAccountabilityScenario(t *testing.T) {
	a, fetcher := newAssistant("{}", "## Accountability Analysis for Proposal 1679:", nil)

	result := a.Accountability(context.Background(), "Check accountability of proposal 1679")

	assert.Equal(t, []string{"1679"}, result.IDs)
	assert.Equal(t, []string{"1679"}, fetcher.calls[model.TypeReferendum])
	assert.Contains(t, result.Analysis, "Accountability Analysis")
}

func TestAccountabilityDiscussionWordFlipsAllTypes(t *testing.T) {
	a, fetcher := newAssistant("{}", "## Accountability Analysis", nil)

	result := a.Accountability(context.Background(), "Check accountability of proposal 1679 and discussion 3313")

	// The word "discussion" anywhere in the prompt sets the default type for
	// every bare id, so both fetch as discussions.
	assert.Equal(t, []string{"1679", "3313"}, result.IDs)
	assert.Equal(t, []string{"1679", "3313"}, fetcher.calls[model.TypeDiscussion])
	assert.Empty(t, fetcher.calls[model.TypeReferendum])
}

func TestChatDynamicRoute(t *testing.T) {
	routerJSON := `{"data_source": "dynamic", "ID": ["1622"], "proposal_type": "ReferendumV2", "keywords": ""}`
	a, fetcher := newAssistant(routerJSON, "the answer", nil)

	result := a.Chat(context.Background(), "What is referendum 1622 about?")

	assert.Equal(t, model.SourceDynamic, result.Source)
	assert.Equal(t, []string{"1622"}, result.IDs)
	assert.Equal(t, []string{"1622"}, fetcher.calls[model.TypeReferendum])
	assert.Equal(t, "the answer", result.Analysis)
}

func TestChatSearchRouteFetchesHits(t *testing.T) {
	routerJSON := `{"data_source": "algolia", "ID": [], "proposal_type": "", "keywords": "marketing campaigns"}`
	searcher := &stubSearcher{hits: []model.SearchHit{
		{IndexID: "1501", ProposalType: model.TypeReferendum, Title: "Marketing push"},
		{IndexID: "77", ProposalType: model.TypeDiscussion, Title: "Campaign ideas"},
	}}
	a, fetcher := newAssistant(routerJSON, "search-based answer", searcher)

	result := a.Chat(context.Background(), "What marketing campaigns are being funded?")

	assert.Equal(t, model.SourceSearch, result.Source)
	assert.Equal(t, []string{"77", "1501"}, result.IDs)
	assert.Equal(t, []string{"1501"}, fetcher.calls[model.TypeReferendum])
	assert.Equal(t, []string{"77"}, fetcher.calls[model.TypeDiscussion])
	assert.Equal(t, "search-based answer", result.Analysis)

	// The routed path resolves no links but still serializes an empty array.
	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"links":[]`)
}

func TestChatSearchRouteNoHits(t *testing.T) {
	routerJSON := `{"data_source": "algolia", "ID": [], "proposal_type": "", "keywords": "nothing relevant"}`
	a, fetcher := newAssistant(routerJSON, "unused", &stubSearcher{})

	result := a.Chat(context.Background(), "What about something completely unknown to governance?")

	assert.Equal(t, model.SourceSearch, result.Source)
	assert.Empty(t, result.Proposals)
	assert.Empty(t, fetcher.calls)
	assert.Equal(t, noMatchMessage, result.Analysis)
	assert.NotNil(t, result.IDs)
	assert.NotNil(t, result.Links)
}

func TestChatLinkOverridesTypeOnDynamicRoute(t *testing.T) {
	routerJSON := `{"data_source": "dynamic", "ID": ["2210"], "proposal_type": "ReferendumV2", "keywords": ""}`
	a, fetcher := newAssistant(routerJSON, "answer", nil)

	result := a.Chat(context.Background(), "Summarize https://polkadot.polkassembly.io/post/2210 please")

	assert.Equal(t, []string{"2210"}, result.IDs)
	assert.Equal(t, []string{"https://polkadot.polkassembly.io/post/2210"}, result.Links)
	// The /post/ link pins the id to a discussion despite the router's type.
	assert.Equal(t, []string{"2210"}, fetcher.calls[model.TypeDiscussion])
	assert.Empty(t, fetcher.calls[model.TypeReferendum])
}
