package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	nullableNumber    = map[string]any{"type": []string{"number", "null"}}
	nullableString    = map[string]any{"type": []string{"string", "null"}}
	stringArraySchema = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
)

func costItems(amountField string) map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": nullableString,
				amountField:   nullableNumber,
			},
		},
	}
}

var commonProperties = map[string]any{
	"summary":               map[string]any{"type": "string"},
	"key_insights":          stringArraySchema,
	"estimated_annual_cost": nullableNumber,
	"one_time_costs":        costItems("amount"),
}

var categoryProperties = map[Category]map[string]any{
	CategoryMeetingMinutes: {
		"meeting_date":   nullableString,
		"decisions":      stringArraySchema,
		"vote_outcomes":  stringArraySchema,
		"upcoming_works": costItems("cost"),
	},
	CategoryDiagnostic: {
		"diagnostic_type": nullableString,
		"diagnostic_date": nullableString,
		"rating":          nullableString,
		"issues_found":    stringArraySchema,
	},
	CategoryTaxNotice: {
		"year":           map[string]any{"type": []string{"number", "string", "null"}},
		"total_amount":   nullableNumber,
		"assessed_value": nullableNumber,
		"due_date":       nullableString,
	},
	CategoryChargesStatement: {
		"period":              nullableString,
		"total_charges":       nullableNumber,
		"breakdown":           map[string]any{"type": []string{"object", "null"}},
		"special_assessments": costItems("amount"),
	},
}

// Schema returns the JSON schema extraction output must satisfy for c.
func Schema(c Category) (map[string]any, error) {
	specific, ok := categoryProperties[c]
	if !ok {
		return nil, fmt.Errorf("%w: no schema for category %q", ErrInvalidConfig, c)
	}

	props := maps.Clone(commonProperties)
	maps.Copy(props, specific)

	return map[string]any{
		"type":       "object",
		"required":   []string{"summary"},
		"properties": props,
	}, nil
}

func compileSchema(c Category) (*jsonschema.Schema, error) {
	schemaMap, err := Schema(c)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	name := string(c) + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}

	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
