package analyze

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/opengov-labs/govassist/internal/model"
)

// maxContentChars bounds per-item free text in multi-item prompts so a
// request with many proposals stays inside the model's context window.
const maxContentChars = 2000

func orNA(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}

func shortDate(createdAt string) string {
	if createdAt == "" {
		return "N/A"
	}
	if len(createdAt) > 10 {
		return createdAt[:10]
	}
	return createdAt
}

func compactJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return "{}"
	}
	return string(raw)
}

// detailBlock renders the shared per-proposal data section every prompt
// template embeds. Multi-item prompts truncate content; the single-item
// path includes it whole.
func detailBlock(r model.ProposalRecord, truncate bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Proposal Data (ID: %s):**\n", r.ID)
	fmt.Fprintf(&b, "- **Title:** %s\n", r.Title)
	fmt.Fprintf(&b, "- **Status:** %s\n", r.Status)
	fmt.Fprintf(&b, "- **Creation Date:** %s\n", shortDate(r.CreatedAt))
	fmt.Fprintf(&b, "- **Proposer:** %s\n", orNA(r.Proposer))
	fmt.Fprintf(&b, "- **Calculated Reward:** %s\n", orNA(r.CalculatedReward))
	fmt.Fprintf(&b, "- **Vote Metrics:** %s\n", compactJSON(r.VoteMetrics))
	fmt.Fprintf(&b, "- **Timeline:** %s\n", compactJSON(r.Timeline))
	if truncate {
		content := r.Content
		suffix := ""
		if len(content) > maxContentChars {
			cut := maxContentChars
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut]
			suffix = "..."
		}
		fmt.Fprintf(&b, "- **Content (first %d chars):** %s%s\n", maxContentChars, content, suffix)
	} else {
		fmt.Fprintf(&b, "- **Content:**\n---\n%s\n---\n", r.Content)
	}
	return b.String()
}

func allDetails(records []model.ProposalRecord) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString("---\n")
		b.WriteString(detailBlock(r, true))
		b.WriteString("---\n")
	}
	return b.String()
}
