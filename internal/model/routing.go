package model

// DataSource selects how a prompt is satisfied.
type DataSource string

const (
	// SourceDynamic fetches specific proposal ids directly.
	SourceDynamic DataSource = "dynamic"
	// SourceSearch resolves a topical prompt through the search index.
	SourceSearch DataSource = "algolia"
)

// ExtractionResult is the merged output of the pattern and LLM extractors.
// Both slices are deduplicated and sorted: ids numerically (non-numeric
// tokens lexically after), links lexically.
type ExtractionResult struct {
	IDs   []string `json:"ids"`
	Links []string `json:"links"`
}

// SearchHit is one result from the search-index collaborator.
type SearchHit struct {
	IndexID      string       `json:"index_id"`
	ProposalType ProposalType `json:"proposal_type"`
	Title        string       `json:"title,omitempty"`
}

// RoutingDecision is created once per prompt by the router and immutable
// thereafter. Exactly one of IDs/Keywords is meaningful depending on Source.
type RoutingDecision struct {
	Source       DataSource   `json:"data_source"`
	IDs          []string     `json:"ids"`
	ProposalType ProposalType `json:"proposal_type,omitempty"`
	Keywords     string       `json:"keywords"`
	Hits         []SearchHit  `json:"search_results"`
}
