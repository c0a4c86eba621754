package api

import (
	"fmt"

	"github.com/JaimeStill/appart/internal/batches"
	"github.com/JaimeStill/appart/internal/checkpoints"
	"github.com/JaimeStill/appart/internal/documents"
	"github.com/JaimeStill/appart/internal/prompts"
	"github.com/JaimeStill/appart/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Batches     batches.System
	Checkpoints checkpoints.System
	Documents   documents.System
	Prompts     prompts.System
}

// NewDomain creates all domain systems from the API runtime. The batch
// system owns the workflow orchestrator, built on a model agent that reads
// stored prompt overrides and on database-backed checkpoints.
func NewDomain(runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()

	docsSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	promptsSystem := prompts.New(db, runtime.Logger)
	checkpointsSystem := checkpoints.New(db, runtime.Logger)

	agent := workflow.NewAgent(runtime.Agent, promptsSystem)

	batchesSystem, err := batches.New(
		batches.Deps{
			DB:         db,
			Documents:  docsSystem,
			Pages:      batches.StoragePages(runtime.Storage, workflow.NewRasterizer(runtime.Workflow.MaxConcurrency)),
			Logger:     runtime.Logger,
			Pagination: runtime.Pagination,
		},
		workflow.Runtime{
			Classifier:  agent,
			Extractor:   agent,
			Summarizer:  agent,
			Checkpoints: checkpointsSystem,
			Logger:      runtime.Logger,
		},
		runtime.Workflow,
	)
	if err != nil {
		return nil, fmt.Errorf("batches init failed: %w", err)
	}

	return &Domain{
		Batches:     batchesSystem,
		Checkpoints: checkpointsSystem,
		Documents:   docsSystem,
		Prompts:     promptsSystem,
	}, nil
}
