package analyze

import (
	"fmt"
	"strings"

	"github.com/opengov-labs/govassist/internal/model"
)

// Task bundles the prompt templates for one analysis kind. All kinds share
// the same zero/one/many dispatch skeleton and differ only here.
type Task struct {
	Name   string
	noData string
	single func(r model.ProposalRecord, question string) string
	multi  func(records []model.ProposalRecord, question string) string
}

var accountabilityCheckpoints = []string{
	"Economic feasibility and cost sharing",
	"Technical implementation and specifications",
	"Governance approvals and inter-ecosystem agreements",
	"Storage token decision and neutrality",
	"Strategic benefit delivery",
	"Validator set and security model",
	"Public communication and stakeholder engagement",
}

func checkpointList() string {
	var b strings.Builder
	for _, c := range accountabilityCheckpoints {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	return b.String()
}

// Analysis summarizes a single proposal or compares several along fixed
// axes (cost, milestones, ecosystem impact, timeline, completeness).
var Analysis = Task{
	Name:   "analysis",
	noData: "No valid proposals could be analyzed.",
	single: func(r model.ProposalRecord, _ string) string {
		return fmt.Sprintf(`Analyze the following proposal and generate a summary in markdown format.

%s
**Instructions:**
Generate the output in the following format. The description should be a complete but summarized explanation of the proposal's main goal (around 2-3 sentences). Convert the raw JSON for vote metrics and timeline into a readable, natural language summary.

**Output Format:**
## Proposal %s:
**Title:** %s
**Type:** [Extract from content, e.g., ReferendumV2, Child Bounty]
**Proposer:** [Proposer Address]
**Reward:** [Extract reward amount and currency, e.g., "256,096 USDC" or "460.7 DOT". If not found, state "Not specified"]
**Category:** [Extract from content, e.g., Development, Marketing, Infrastructure]
**Status:** %s
**Creation Date:** %s
**Description:** [A complete but summarized description of the proposal's main goal. ~2-3 sentences]
**Voting Status:** [Natural language summary of vote metrics]
**Timeline:** [Natural language summary of timeline]
`, detailBlock(r, false), r.ID, r.Title, r.Status, shortDate(r.CreatedAt))
	},
	multi: func(records []model.ProposalRecord, _ string) string {
		return fmt.Sprintf(`Analyze and compare the following proposals. Generate a detailed summary for each, followed by a final comparison section, all in markdown format.

**All Proposal Data:**
%s
**Instructions:**
1. For EACH proposal, create a summary section as specified in the format below.
2. After all individual summaries, create a "## Comparison" section.
3. The description for each proposal must be a complete but summarized explanation of its purpose (~2-3 sentences).
4. Convert raw JSON data for votes and timeline into readable, natural language summaries.
5. The final comparison section must be concise (1 sentence per point).

**Required Output Format:**

## Proposal [ID]:
**Title:** [Title]
**Type:** [Extract from content, e.g., ReferendumV2]
**Proposer:** [Proposer Address]
**Reward:** [Extract reward amount and currency. If not found, state "Not specified"]
**Category:** [Extract from content, e.g., Development]
**Status:** [Status]
**Creation Date:** [Creation Date]
**Description:** [A complete but summarized description. ~2-3 sentences]
**Voting Status:** [Natural language summary of votes]
**Timeline:** [Natural language summary of timeline]

## Proposal [Next ID]:
... (repeat for each proposal) ...

## Comparison:
**Cost:** [Compare funding amounts in 1 sentence]
**Milestones:** [Compare timelines and deliverables in 1 sentence]
**Impact on Polkadot:** [Compare ecosystem impact in 1 sentence]
**Timeline:** [Compare project timelines in 1 sentence]
**Completeness:** [Compare how well-defined each proposal is in 1 sentence]
`, allDetails(records))
	},
}

// Accountability scores proposals against a fixed seven-checkpoint
// governance rubric.
var Accountability = Task{
	Name:   "accountability analysis",
	noData: "No valid proposals could be analyzed for accountability.",
	single: func(r model.ProposalRecord, _ string) string {
		return fmt.Sprintf(`Perform an accountability analysis of the following proposal based on governance best practices.

%s
**Instructions:**
Analyze this proposal against the following accountability checkpoints. For each checkpoint, provide:
1. A status indicator: ✅ (Strong), ⚠️ (Moderate), ❌ (Weak/Missing)
2. A brief 1-2 sentence assessment explaining your rating

**Accountability Checkpoints:**
%s
**Output Format:**
## Accountability Analysis for Proposal %s:

**Proposal Overview:**
- **Title:** %s
- **Type:** [Extract from content]
- **Reward:** %s
- **Status:** %s

**Accountability Assessment:**
[For each checkpoint above: **Checkpoint name:** [✅/⚠️/❌] [Assessment in 1-2 sentences]]

**Overall Accountability Score:** [X/7] checkpoints met with strong accountability measures.

**Questions to answer:**
- When is the project successful?
- By when is the final delivery of the project expected?
- Details of the beneficiary:
- Which audience is targeted in this proposal?
- How will success be measured?
- What is the (measurable) benefit for Polkadot?
- Are deliverables clearly specified?
- What are the funds used for in this proposal?
`, detailBlock(r, false), checkpointList(), r.ID, r.Title, orNA(r.CalculatedReward), r.Status)
	},
	multi: func(records []model.ProposalRecord, _ string) string {
		return fmt.Sprintf(`Perform a comparative accountability analysis of the following %d proposals based on governance best practices.

**All Proposal Data:**
%s
**Instructions:**
1. For EACH proposal, provide an accountability assessment against the checkpoints below
2. After individual assessments, provide a comparative summary
3. Use status indicators: ✅ (Strong), ⚠️ (Moderate), ❌ (Weak/Missing)
4. Be thorough in analyzing each proposal individually before comparing

**Accountability Checkpoints:**
%s
**Required Output Format:**

## Accountability Analysis for Proposal [ID]:

**Proposal Overview:**
- **Title:** [Title]
- **Type:** [Extract from content]
- **Reward:** [Use calculated reward]
- **Status:** [Status]

**Accountability Assessment:**
[For each checkpoint above: **Checkpoint name:** [✅/⚠️/❌] [Assessment]]

**Overall Accountability Score:** [X/7]

[Repeat the above format for each of the %d proposals]

## Comparative Accountability Summary:
**Most Accountable:** Proposal [ID] with [X/7] strong checkpoints
**Accountability Ranking:** [Rank all proposals from most to least accountable]
**Key Differences:** [Brief comparison of accountability strengths and weaknesses across all proposals]
**Common Weaknesses:** [Areas where multiple proposals could improve accountability]
**Recommendations:** [Specific suggestions for improving accountability in weaker proposals]
`, len(records), allDetails(records), checkpointList(), len(records))
	},
}

// Chat answers a free-form user question grounded in the fetched proposal
// data.
var Chat = Task{
	Name:   "answer",
	noData: "No valid proposals could be found to answer your question.",
	single: func(r model.ProposalRecord, question string) string {
		return fmt.Sprintf(`Below is the data for a proposal and the user's question. Answer the question directly based on the proposal data.

**User Question:** %q

%s
**Instructions:**
1. Answer the user's question directly and concisely
2. Base your answer on the proposal data provided above
3. If the question cannot be answered from the available data, say so clearly
4. Use a natural, conversational tone
5. Include specific details from the proposal when relevant
6. Format your response in clear, readable markdown

**Answer:**
`, question, detailBlock(r, false))
	},
	multi: func(records []model.ProposalRecord, question string) string {
		return fmt.Sprintf(`Below is the data for %d proposals and the user's question. Answer the question directly based on the proposal data.

**User Question:** %q

**All Proposal Data:**
%s
**Instructions:**
1. Answer the user's question directly and comprehensively
2. Base your answer on the proposal data provided above
3. If comparing proposals, highlight key differences and similarities
4. If the question cannot be answered from the available data, say so clearly
5. Use a natural, conversational tone
6. Include specific details from the proposals when relevant
7. Format your response in clear, readable markdown
8. If relevant, organize your answer by proposal or by topic

**Answer:**
`, len(records), question, allDetails(records))
	},
}
