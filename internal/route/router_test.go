package route

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengov-labs/govassist/internal/model"
	"github.com/opengov-labs/govassist/pkg/anthropic"
)

// stubModel implements anthropic.Client with a canned response.
type stubModel struct {
	text string
	err  error
}

func (s *stubModel) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.text}},
	}, nil
}

// stubSearcher records queries and returns canned hits.
type stubSearcher struct {
	hits     []model.SearchHit
	err      error
	keywords string
	count    int
	calls    int
}

func (s *stubSearcher) Search(_ context.Context, keywords string, count int) ([]model.SearchHit, error) {
	s.calls++
	s.keywords = keywords
	s.count = count
	return s.hits, s.err
}

func TestRouter_ModelDynamicDecision(t *testing.T) {
	stub := &stubModel{text: `{"data_source":"dynamic","ID":["1679","1680"],"proposal_type":"ReferendumV2","keywords":""}`}
	searcher := &stubSearcher{}
	r := NewRouter(stub, searcher, "m", 0, 10)

	d := r.Route(context.Background(), "Compare proposal 1679 and 1680")
	assert.Equal(t, model.SourceDynamic, d.Source)
	assert.Equal(t, []string{"1679", "1680"}, d.IDs)
	assert.Equal(t, model.TypeReferendum, d.ProposalType)
	assert.Empty(t, d.Hits)
	assert.Zero(t, searcher.calls, "dynamic decisions must not search")
}

func TestRouter_ModelSearchDecisionTriggersSearch(t *testing.T) {
	stub := &stubModel{text: `{"data_source":"algolia","ID":[],"proposal_type":"","keywords":"treasury development"}`}
	searcher := &stubSearcher{hits: []model.SearchHit{{IndexID: "1622", ProposalType: model.TypeReferendum}}}
	r := NewRouter(stub, searcher, "m", 0, 7)

	d := r.Route(context.Background(), "treasury proposals about development")
	assert.Equal(t, model.SourceSearch, d.Source)
	assert.Equal(t, "treasury development", searcher.keywords)
	assert.Equal(t, 7, searcher.count)
	require.Len(t, d.Hits, 1)
	assert.Equal(t, "1622", d.Hits[0].IndexID)
}

func TestRouter_CodeFencedResponse(t *testing.T) {
	stub := &stubModel{text: "```json\n{\"data_source\":\"dynamic\",\"ID\":[\"1104\"],\"proposal_type\":\"Discussion\",\"keywords\":\"\"}\n```"}
	r := NewRouter(stub, nil, "m", 0, 10)

	d := r.Route(context.Background(), "discussion 1104")
	assert.Equal(t, model.SourceDynamic, d.Source)
	assert.Equal(t, []string{"1104"}, d.IDs)
	assert.Equal(t, model.TypeDiscussion, d.ProposalType)
}

func TestRouter_FallbackOnModelError(t *testing.T) {
	r := NewRouter(&stubModel{err: errors.New("unavailable")}, nil, "m", 0, 10)

	d := r.Route(context.Background(), "summarize referendum 1622")
	assert.Equal(t, model.SourceDynamic, d.Source)
	assert.Equal(t, []string{"1622"}, d.IDs)
	assert.Equal(t, model.TypeReferendum, d.ProposalType)
}

func TestRouter_FallbackOnMalformedResponse(t *testing.T) {
	r := NewRouter(&stubModel{text: "sorry, I cannot help with that"}, nil, "m", 0, 10)

	d := r.Route(context.Background(), "proposal 1679")
	assert.Equal(t, model.SourceDynamic, d.Source)
	assert.Equal(t, []string{"1679"}, d.IDs)
}

func TestRouter_DegradedMode(t *testing.T) {
	r := NewRouter(nil, nil, "", 0, 10)
	require.False(t, r.ready)

	d := r.Route(context.Background(), "discussion 1104 please")
	assert.Equal(t, model.SourceDynamic, d.Source)
	assert.Equal(t, []string{"1104"}, d.IDs)
	assert.Equal(t, model.TypeDiscussion, d.ProposalType)
}

func TestRouter_SearchFailureKeepsDecision(t *testing.T) {
	stub := &stubModel{text: `{"data_source":"algolia","ID":[],"proposal_type":"","keywords":"governance"}`}
	searcher := &stubSearcher{err: errors.New("index down")}
	r := NewRouter(stub, searcher, "m", 0, 10)

	d := r.Route(context.Background(), "governance stuff")
	assert.Equal(t, model.SourceSearch, d.Source)
	assert.Equal(t, "governance", d.Keywords)
	assert.Empty(t, d.Hits)
}

func TestFallbackRoute_KeywordExtraction(t *testing.T) {
	d := fallbackRoute("Tell me about the subwallet development funding proposals roadmap extra")
	assert.Equal(t, model.SourceSearch, d.Source)
	assert.Empty(t, d.IDs)
	assert.Equal(t, "subwallet development funding proposals roadmap", d.Keywords,
		"first 5 non-stopword tokens, lowercased")
}

func TestFallbackRoute_EmptyKeywordsDeadEnd(t *testing.T) {
	d := fallbackRoute("to the and of")
	assert.Equal(t, model.SourceSearch, d.Source)
	assert.Empty(t, d.Keywords)
}

func TestExtractContextIDs(t *testing.T) {
	ids := extractContextIDs("compare referendum 1680 with proposal 1679 and id 900")
	assert.Equal(t, []string{"900", "1679", "1680"}, ids)
}

func TestExtractContextIDs_NumberBeforeWord(t *testing.T) {
	ids := extractContextIDs("the 1622 referendum")
	assert.Equal(t, []string{"1622"}, ids)
}
