// Package model defines the proposal domain types shared across the pipeline.
package model

// ProposalType identifies the kind of governance item behind an id.
type ProposalType string

const (
	// TypeReferendum is an OpenGov treasury referendum.
	TypeReferendum ProposalType = "ReferendumV2"
	// TypeDiscussion is a forum discussion post.
	TypeDiscussion ProposalType = "Discussion"
)

// ProposalRef is the identity of a proposal to fetch.
type ProposalRef struct {
	ID   string       `json:"id"`
	Type ProposalType `json:"type"`
}

// Beneficiary is a payout record attached to a proposal.
type Beneficiary struct {
	Amount  string `json:"amount"`
	AssetID string `json:"assetId"`
	Address string `json:"address,omitempty"`
}

// ProposalRecord holds the proposal data returned by the Polkassembly API,
// augmented with a pre-calculated reward. A record with a non-empty Error
// carries placeholder fields and must not be analyzed.
type ProposalRecord struct {
	ID               string           `json:"id"`
	Type             ProposalType     `json:"proposal_type"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	Status           string           `json:"status"`
	CreatedAt        string           `json:"created_at"`
	Proposer         string           `json:"proposer,omitempty"`
	Beneficiaries    []Beneficiary    `json:"beneficiaries,omitempty"`
	VoteMetrics      map[string]any   `json:"vote_metrics,omitempty"`
	Timeline         []map[string]any `json:"timeline,omitempty"`
	CalculatedReward string           `json:"calculated_reward,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Valid reports whether the record can be analyzed.
func (p *ProposalRecord) Valid() bool {
	return p.Error == ""
}

// ErrorRecord builds the placeholder record used when a fetch fails.
func ErrorRecord(id string, typ ProposalType, errMsg string) ProposalRecord {
	return ProposalRecord{
		ID:     id,
		Type:   typ,
		Title:  "Error",
		Status: "Error",
		Error:  errMsg,
	}
}

// FilterValid returns only the records that can be analyzed.
func FilterValid(records []ProposalRecord) []ProposalRecord {
	valid := make([]ProposalRecord, 0, len(records))
	for _, r := range records {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	return valid
}
