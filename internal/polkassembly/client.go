// Package polkassembly fetches proposal data from the Polkassembly v2 API.
package polkassembly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/opengov-labs/govassist/internal/model"
)

// DefaultBaseURL is the production Polkadot Polkassembly API.
const DefaultBaseURL = "https://polkadot.polkassembly.io/api/v2"

// ProposalFetcher defines the proposal-data operations. Fetch failures come
// back as error-tagged records, not error returns, so one bad id never
// aborts a batch.
type ProposalFetcher interface {
	// FetchProposal fetches a single proposal by id and type.
	FetchProposal(ctx context.Context, id string, typ model.ProposalType) model.ProposalRecord
	// FetchMany fetches several proposals of one type concurrently,
	// returning records in input id order.
	FetchMany(ctx context.Context, ids []string, typ model.ProposalType) []model.ProposalRecord
}

// Option configures the Polkassembly client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request HTTP timeout. Zero or negative keeps the
// current timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRatePerSec caps outgoing request rate. Zero or negative disables the
// limiter.
func WithRatePerSec(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Polkassembly client. An empty baseURL falls back to
// the production endpoint.
func NewClient(baseURL string, opts ...Option) ProposalFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// proposalResponse mirrors the fields we read from GET /{type}/{id}.
type proposalResponse struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	CreatedAt   string `json:"createdAt"`
	OnChainInfo struct {
		Status        string              `json:"status"`
		Proposer      string              `json:"proposer"`
		Beneficiaries []model.Beneficiary `json:"beneficiaries"`
		VoteMetrics   map[string]any      `json:"voteMetrics"`
		Timeline      []map[string]any    `json:"timeline"`
	} `json:"onChainInfo"`
}

func (c *httpClient) FetchProposal(ctx context.Context, id string, typ model.ProposalType) model.ProposalRecord {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.ErrorRecord(id, typ, fmt.Sprintf("failed to fetch proposal %s: %v", id, err))
		}
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, typ, id)
	zap.L().Debug("polkassembly: fetching proposal", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.ErrorRecord(id, typ, fmt.Sprintf("failed to fetch proposal %s: %v", id, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.ErrorRecord(id, typ, fmt.Sprintf("failed to fetch proposal %s: %v", id, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP error %d for proposal %s", resp.StatusCode, id)
		zap.L().Warn("polkassembly: fetch failed", zap.String("id", id), zap.Int("status", resp.StatusCode))
		return model.ErrorRecord(id, typ, msg)
	}

	var data proposalResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return model.ErrorRecord(id, typ, fmt.Sprintf("failed to fetch proposal %s: %v", id, err))
	}

	record := model.ProposalRecord{
		ID:            id,
		Type:          typ,
		Title:         data.Title,
		Content:       data.Content,
		Status:        data.OnChainInfo.Status,
		CreatedAt:     data.CreatedAt,
		Proposer:      data.OnChainInfo.Proposer,
		Beneficiaries: data.OnChainInfo.Beneficiaries,
		VoteMetrics:   data.OnChainInfo.VoteMetrics,
		Timeline:      data.OnChainInfo.Timeline,
	}
	if record.Title == "" {
		record.Title = fmt.Sprintf("Proposal %s", id)
	}
	if record.Status == "" {
		record.Status = "Status not found"
	}
	return record
}

func (c *httpClient) FetchMany(ctx context.Context, ids []string, typ model.ProposalType) []model.ProposalRecord {
	if len(ids) == 0 {
		return nil
	}

	zap.L().Info("polkassembly: fetching proposals",
		zap.Int("count", len(ids)),
		zap.String("type", string(typ)),
	)

	records := make([]model.ProposalRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			records[i] = c.FetchProposal(gctx, id, typ)
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for i := range records {
		if records[i].Valid() {
			ok++
		}
	}
	zap.L().Info("polkassembly: fetch complete", zap.Int("ok", ok), zap.Int("total", len(ids)))
	return records
}
