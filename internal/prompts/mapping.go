package prompts

import (
	"github.com/JaimeStill/appart/pkg/query"
	"github.com/JaimeStill/appart/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "prompts", "p").
	Project("stage", "Stage").
	Project("instructions", "Instructions").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Stage",
}

func scanOverride(s repository.Scanner) (Override, error) {
	var o Override
	err := s.Scan(
		&o.Stage,
		&o.Instructions,
		&o.UpdatedAt,
	)
	return o, err
}

func entry(stage Stage, o *Override) Entry {
	e := Entry{Stage: stage}
	e.Instructions, _ = Instructions(stage)
	e.Spec, _ = Spec(stage)

	if o != nil {
		updated := o.UpdatedAt
		e.Instructions = o.Instructions
		e.Overridden = true
		e.UpdatedAt = &updated
	}
	return e
}
