// Package prompts owns the instructions and output specifications sent to
// the model at each workflow stage. Instructions can be overridden per
// stage; specifications are fixed because the workflow parses against them.
package prompts

import "time"

// Override is a stored replacement for a stage's default instructions.
type Override struct {
	Stage        Stage     `json:"stage"`
	Instructions string    `json:"instructions"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Entry is the effective prompt configuration of one stage.
type Entry struct {
	Stage        Stage      `json:"stage"`
	Instructions string     `json:"instructions"`
	Spec         string     `json:"spec"`
	Overridden   bool       `json:"overridden"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// SetCommand carries replacement instructions for a stage.
type SetCommand struct {
	Instructions string `json:"instructions"`
}
