package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/encoding"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/appart/internal/prompts"
	"github.com/JaimeStill/appart/pkg/formatting"
)

// Agent implements the classification, extraction, and synthesis
// capabilities with go-agents. A fresh agent is created per call so
// concurrent fan-out tasks never share client state.
type Agent struct {
	cfg     gaconfig.AgentConfig
	prompts prompts.Source
}

// NewAgent creates the model-backed capability set.
func NewAgent(cfg gaconfig.AgentConfig, src prompts.Source) *Agent {
	return &Agent{cfg: cfg, prompts: src}
}

type classifyResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type synthesisResponse struct {
	Summary             string                    `json:"summary"`
	RiskLevel           string                    `json:"risk_level"`
	KeyFindings         []string                  `json:"key_findings"`
	Recommendations     []string                  `json:"recommendations"`
	DocumentsByCategory map[string]CategoryRollup `json:"documents_by_category"`
}

// Classify sends the leading page images to the vision model.
// Labels are returned as parsed; the Resolver handles unknown ones.
func (a *Agent) Classify(ctx context.Context, pages []Page) (Classification, error) {
	prompt, err := ComposePrompt(ctx, a.prompts, prompts.StageClassify, "", nil)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	content, err := a.vision(ctx, prompt, pages)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	parsed, err := formatting.Parse[classifyResponse](content)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	category, ok := ParseCategory(parsed.Category)
	if !ok {
		category = Category(parsed.Category)
	}

	return Classification{
		Category:   category,
		Confidence: parsed.Confidence,
		Rationale:  parsed.Rationale,
	}, nil
}

// Extract sends the document pages with the category's extraction prompt.
func (a *Agent) Extract(ctx context.Context, pages []Page, category Category) (json.RawMessage, error) {
	prompt, err := ComposePrompt(ctx, a.prompts, prompts.Stage(category), "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}

	content, err := a.vision(ctx, prompt, pages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}

	raw, err := formatting.Parse[json.RawMessage](content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	return raw, nil
}

// Summarize sends every result record as JSON context to the chat model.
func (a *Agent) Summarize(ctx context.Context, records []ResultRecord) (Synthesis, error) {
	prompt, err := ComposePrompt(ctx, a.prompts, prompts.StageSynthesize, "Documents processed", records)
	if err != nil {
		return Synthesis{}, fmt.Errorf("%w: %w", ErrSynthesizeFailed, err)
	}

	ag, err := agent.New(&a.cfg)
	if err != nil {
		return Synthesis{}, fmt.Errorf("%w: create agent: %w", ErrSynthesizeFailed, err)
	}

	resp, err := ag.Chat(ctx, prompt)
	if err != nil {
		return Synthesis{}, fmt.Errorf("%w: chat call: %w", ErrSynthesizeFailed, err)
	}

	parsed, err := formatting.Parse[synthesisResponse](resp.Content())
	if err != nil {
		return Synthesis{}, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	summaries := make(map[Category]string, len(parsed.DocumentsByCategory))
	for label, rollup := range parsed.DocumentsByCategory {
		if c, ok := ParseCategory(label); ok && rollup.Summary != "" {
			summaries[c] = rollup.Summary
		}
	}

	return Synthesis{
		Summary:           parsed.Summary,
		RiskLevel:         parsed.RiskLevel,
		KeyFindings:       parsed.KeyFindings,
		Recommendations:   parsed.Recommendations,
		CategorySummaries: summaries,
	}, nil
}

func (a *Agent) vision(ctx context.Context, prompt string, pages []Page) (string, error) {
	uris, err := encodePages(pages)
	if err != nil {
		return "", err
	}

	ag, err := agent.New(&a.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	resp, err := ag.Vision(ctx, prompt, uris)
	if err != nil {
		return "", fmt.Errorf("vision call: %w", err)
	}

	return resp.Content(), nil
}

func encodePages(pages []Page) ([]string, error) {
	uris := make([]string, len(pages))
	for i, p := range pages {
		uri, err := encoding.EncodeImageDataURI(p.Image, document.PNG)
		if err != nil {
			return nil, fmt.Errorf("page %d: encode image: %w", p.Number, err)
		}
		uris[i] = uri
	}
	return uris, nil
}
