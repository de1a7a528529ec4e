// Package analyze builds analysis prompts from fetched proposal records and
// dispatches them to the language model. All analysis kinds share one
// dispatcher; a Task supplies the prompt templates.
package analyze

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/model"
	"github.com/opengov-labs/govassist/pkg/anthropic"
)

// Dispatcher runs analysis tasks against the model. Without a usable client
// it stays in degraded mode for its lifetime and answers with deterministic
// placeholder text.
type Dispatcher struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	ready     bool
}

// NewDispatcher creates a Dispatcher. A nil client or empty model name
// leaves it permanently degraded.
func NewDispatcher(client anthropic.Client, modelName string, maxTokens int64) *Dispatcher {
	ready := client != nil && modelName != ""
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if !ready {
		zap.L().Warn("analyze: model client not available, analysis disabled")
	}
	return &Dispatcher{
		client:    client,
		model:     modelName,
		maxTokens: maxTokens,
		ready:     ready,
	}
}

// Run filters out error records, picks the single-item or multi-item prompt
// by count, and returns the model's text verbatim. Model failures come back
// as a fallback string naming the error, never as a panic or empty result.
func (d *Dispatcher) Run(ctx context.Context, task Task, records []model.ProposalRecord, question string) string {
	valid := model.FilterValid(records)
	if len(valid) == 0 {
		return task.noData
	}

	if !d.ready {
		if len(valid) == 1 {
			return fmt.Sprintf("Proposal %s: %s\n(AI analysis disabled: model client not available)", valid[0].ID, valid[0].Title)
		}
		return fmt.Sprintf("Could not generate %s. AI client not available.", task.Name)
	}

	var prompt string
	if len(valid) == 1 {
		prompt = task.single(valid[0], question)
	} else {
		prompt = task.multi(valid, question)
	}

	text, err := anthropic.Complete(ctx, d.client, d.model, prompt, d.maxTokens)
	if err != nil {
		zap.L().Error("analyze: model call failed",
			zap.String("task", task.Name),
			zap.Int("proposals", len(valid)),
			zap.Error(err),
		)
		return fmt.Sprintf("Error generating %s: %v.", task.Name, err)
	}
	return strings.TrimSpace(text)
}
