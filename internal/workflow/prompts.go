package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JaimeStill/appart/internal/prompts"
)

// ComposePrompt builds a system prompt by combining tunable instructions,
// immutable specifications, and optional JSON data for a workflow stage.
// Nil data yields only instructions and spec.
func ComposePrompt(
	ctx context.Context,
	src prompts.Source,
	stage prompts.Stage,
	label string,
	data any,
) (string, error) {
	instructions, err := src.Instructions(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := src.Spec(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)

	if data != nil {
		contextJSON, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serialize %s: %w", label, err)
		}

		fmt.Fprintf(&sb, "\n\n%s:\n\n", label)
		sb.Write(contextJSON)
	}

	return sb.String(), nil
}
