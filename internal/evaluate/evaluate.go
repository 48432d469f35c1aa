// Package evaluate asks an LLM to judge parameter-level fit between a
// target part and a substitute candidate, producing an evaluation report.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/procurewatch/bomrisk/internal/model"
	"github.com/procurewatch/bomrisk/pkg/anthropic"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 4096
)

const systemPrompt = `You are a component engineer comparing electronic parts for substitution.
Given a target part and a candidate replacement, score each shared technical parameter from 0 to 100, where 100 means the candidate meets or exceeds the target on that parameter and 0 means it is unusable as a replacement.

Respond with JSON only, no prose, in this shape:
{
  "summary": "<one sentence overall verdict>",
  "parameters": [
    {"parameterId": "<name>", "description": "<what the parameter is>", "targetValue": "<value or null>", "candidateValue": "<value or null>", "score": <0-100>, "reason": "<one sentence>"}
  ]
}
When a value is missing on either side, set the corresponding field to null and explain in the reason. Do not invent values.`

// Option configures the evaluator.
type Option func(*Evaluator)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(e *Evaluator) {
		e.model = model
	}
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int64) Option {
	return func(e *Evaluator) {
		e.maxTokens = n
	}
}

// Evaluator runs LLM-based part comparisons.
type Evaluator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates an Evaluator backed by the given Anthropic client.
func New(client anthropic.Client, opts ...Option) *Evaluator {
	e := &Evaluator{
		client:    client,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate compares a candidate part against the target and returns the
// parsed report.
func (e *Evaluator) Evaluate(ctx context.Context, target, candidate model.UnifiedProduct) (*model.EvaluationReport, error) {
	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: buildPrompt(target, candidate)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "evaluate: %s vs %s", target.MPN, candidate.MPN)
	}
	resp.Usage.LogCost(e.model, "evaluate")

	report, err := parseReport(extractText(resp))
	if err != nil {
		return nil, eris.Wrapf(err, "evaluate: %s vs %s", target.MPN, candidate.MPN)
	}

	report.TargetID = target.MPN
	report.CandidateID = candidate.MPN
	report.EvaluatedAt = time.Now().UTC()
	zap.L().Info("evaluation complete",
		zap.String("target", target.MPN),
		zap.String("candidate", candidate.MPN),
		zap.Int("parameters", len(report.Parameters)),
	)
	return report, nil
}

// buildPrompt renders both parts as labeled parameter tables.
func buildPrompt(target, candidate model.UnifiedProduct) string {
	var sb strings.Builder
	sb.WriteString("Target part:\n")
	writePart(&sb, target)
	sb.WriteString("\nCandidate part:\n")
	writePart(&sb, candidate)
	return sb.String()
}

func writePart(sb *strings.Builder, p model.UnifiedProduct) {
	fmt.Fprintf(sb, "  MPN: %s\n", p.MPN)
	if p.Manufacturer != "" {
		fmt.Fprintf(sb, "  Manufacturer: %s\n", p.Manufacturer)
	}
	if p.Description != "" {
		fmt.Fprintf(sb, "  Description: %s\n", p.Description)
	}
	for _, param := range p.Parameters {
		fmt.Fprintf(sb, "  %s: %s\n", param.Name, param.Value)
	}
}

// extractText concatenates all text content blocks.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// parseReport decodes and validates the model's JSON response.
func parseReport(text string) (*model.EvaluationReport, error) {
	cleaned := cleanJSON(text)

	var raw struct {
		Summary    string                      `json:"summary"`
		Parameters []model.ParameterEvaluation `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrap(err, "parse evaluation JSON")
	}
	if len(raw.Parameters) == 0 {
		return nil, eris.New("evaluation contains no parameters")
	}

	for i, p := range raw.Parameters {
		if p.ParameterID == "" {
			return nil, eris.Errorf("parameter %d has no id", i)
		}
		if p.Score < 0 || p.Score > 100 {
			return nil, eris.Errorf("parameter %q score %d outside [0,100]", p.ParameterID, p.Score)
		}
	}

	return &model.EvaluationReport{
		Summary:    raw.Summary,
		Parameters: raw.Parameters,
	}, nil
}
