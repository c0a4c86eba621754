package prompts

import (
	"encoding/json"
	"slices"
)

// Stage identifies the workflow step a prompt drives. Processing stages
// share their names with the document categories they extract.
type Stage string

// Valid workflow stages.
const (
	StageClassify         Stage = "classify"
	StageMeetingMinutes   Stage = "meeting_minutes"
	StageDiagnostic       Stage = "diagnostic"
	StageTaxNotice        Stage = "tax_notice"
	StageChargesStatement Stage = "charges_statement"
	StageSynthesize       Stage = "synthesize"
)

var stages = []Stage{
	StageClassify,
	StageMeetingMinutes,
	StageDiagnostic,
	StageTaxNotice,
	StageChargesStatement,
	StageSynthesize,
}

// Stages returns the list of valid workflow stages.
func Stages() []Stage {
	return slices.Clone(stages)
}

// UnmarshalJSON validates that the decoded string is a known stage value.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage validates a string as a known workflow stage.
// Returns ErrInvalidStage if the value is not recognized.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}
