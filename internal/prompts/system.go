package prompts

import "context"

// Source resolves the text composed into a stage's prompt.
type Source interface {
	Instructions(ctx context.Context, stage Stage) (string, error)
	Spec(ctx context.Context, stage Stage) (string, error)
}

// System defines the public contract for prompt domain operations.
type System interface {
	Source

	Handler() *Handler

	List(ctx context.Context) ([]Entry, error)
	Find(ctx context.Context, stage Stage) (*Entry, error)
	Set(ctx context.Context, stage Stage, cmd SetCommand) (*Entry, error)
	Reset(ctx context.Context, stage Stage) error
}

type defaults struct{}

// Defaults returns a Source serving the built-in instructions and specs.
func Defaults() Source {
	return defaults{}
}

func (defaults) Instructions(_ context.Context, stage Stage) (string, error) {
	return Instructions(stage)
}

func (defaults) Spec(_ context.Context, stage Stage) (string, error) {
	return Spec(stage)
}
