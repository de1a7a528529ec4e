// Package search provides the keyword search-index collaborator used for
// topical prompts that name no specific proposal.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/model"
)

// Searcher is the search-index contract consumed by the router.
type Searcher interface {
	// Search returns up to count hits for the given keywords, in index
	// relevance order.
	Search(ctx context.Context, keywords string, count int) ([]model.SearchHit, error)
}

// Option configures the Algolia client.
type Option func(*AlgoliaClient)

// WithBaseURL overrides the query endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *AlgoliaClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *AlgoliaClient) {
		c.http = hc
	}
}

// AlgoliaClient implements Searcher against the Algolia query REST API.
type AlgoliaClient struct {
	appID   string
	apiKey  string
	index   string
	baseURL string
	http    *http.Client
}

// NewAlgolia creates a search client for the given application and index.
func NewAlgolia(appID, apiKey, index string, opts ...Option) *AlgoliaClient {
	c := &AlgoliaClient{
		appID:   appID,
		apiKey:  apiKey,
		index:   index,
		baseURL: fmt.Sprintf("https://%s-dsn.algolia.net", appID),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// algoliaHit is the raw index record shape; proposal ids live in objectID
// and the type in post_type.
type algoliaHit struct {
	ObjectID     string `json:"objectID"`
	PostType     string `json:"post_type"`
	ProposalType string `json:"proposalType"`
	Title        string `json:"title"`
}

func (c *AlgoliaClient) Search(ctx context.Context, keywords string, count int) ([]model.SearchHit, error) {
	params := url.Values{}
	params.Set("query", keywords)
	params.Set("hitsPerPage", fmt.Sprintf("%d", count))

	payload, err := json.Marshal(map[string]string{"params": params.Encode()})
	if err != nil {
		return nil, eris.Wrap(err, "search: marshal query")
	}

	endpoint := fmt.Sprintf("%s/1/indexes/%s/query", c.baseURL, url.PathEscape(c.index))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "search: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Algolia-Application-Id", c.appID)
	req.Header.Set("X-Algolia-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "search: query request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Hits []algoliaHit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "search: decode response")
	}

	hits := make([]model.SearchHit, 0, len(body.Hits))
	for _, h := range body.Hits {
		hits = append(hits, model.SearchHit{
			IndexID:      h.ObjectID,
			ProposalType: hitType(h),
			Title:        h.Title,
		})
	}

	zap.L().Info("search: query complete",
		zap.String("keywords", keywords),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

// hitType resolves the proposal type of an index record; discussion posts
// are tagged "discussions", everything else fetches as a referendum.
func hitType(h algoliaHit) model.ProposalType {
	for _, t := range []string{h.PostType, h.ProposalType} {
		switch t {
		case "discussions", "discussion", string(model.TypeDiscussion):
			return model.TypeDiscussion
		}
	}
	return model.TypeReferendum
}
