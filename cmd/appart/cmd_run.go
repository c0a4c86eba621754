package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/appart/internal/batches"
	"github.com/JaimeStill/appart/internal/checkpoints"
	"github.com/JaimeStill/appart/internal/config"
	"github.com/JaimeStill/appart/internal/infrastructure"
	"github.com/JaimeStill/appart/internal/prompts"
	"github.com/JaimeStill/appart/internal/workflow"
)

var runFlags struct {
	batchID      string
	label        string
	checkpointDB string
	output       string
	routing      string
	xlsx         string
	restart      bool
}

var runCmd = &cobra.Command{
	Use:   "run FILE...",
	Short: "Run the batch pipeline over local PDF files",
	Long: `Rasterize each PDF, classify it, run the type processors, and print the
batch summary with every document's result.

A new batch id is generated unless --batch-id is given. The id is logged at
start; pass it again to resume from the last checkpoint.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.batchID, "batch-id", "", "Batch id to run or resume (default: new id)")
	f.StringVar(&runFlags.label, "label", "", "Batch label used in the XLSX report")
	f.StringVar(&runFlags.checkpointDB, "checkpoint-db", filepath.Join(".appart", "checkpoints.db"), "SQLite checkpoint file")
	f.StringVarP(&runFlags.output, "output", "o", formatJSON, "Report format: json or yaml")
	f.StringVar(&runFlags.routing, "routing", "", "Routing policy override: priority or all")
	f.StringVar(&runFlags.xlsx, "xlsx", "", "Also write an XLSX report to this path")
	f.BoolVar(&runFlags.restart, "restart", false, "Discard the batch's checkpoint and run from the start")
}

// runRequest is one invocation of the run command.
type runRequest struct {
	batchID uuid.UUID
	label   string
	files   []string
	format  string
	xlsx    string
	restart bool
}

// runReport is the printed outcome of a batch.
type runReport struct {
	BatchID   uuid.UUID               `json:"batch_id"`
	Summary   *workflow.BatchSummary  `json:"summary"`
	Documents []workflow.ResultRecord `json:"documents"`
}

// runner executes a batch with injected capabilities and page sources.
type runner struct {
	rt     workflow.Runtime
	cfg    workflow.Config
	pages  func(path string) workflow.PagesProvider
	store  checkpoints.System
	out    io.Writer
	logger *slog.Logger
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := validateFormat(runFlags.output); err != nil {
		return err
	}

	cfg, err := config.LoadRunner(rootFlags.configPath)
	if err != nil {
		return err
	}
	if runFlags.routing != "" {
		cfg.Workflow.Routing = runFlags.routing
		if err := cfg.Workflow.Finalize(nil); err != nil {
			return err
		}
	}

	batchID := uuid.New()
	if runFlags.batchID != "" {
		if batchID, err = uuid.Parse(runFlags.batchID); err != nil {
			return fmt.Errorf("invalid --batch-id: %w", err)
		}
	}

	logger := infrastructure.NewLogger(&cfg.Logging, cmd.ErrOrStderr())

	if err := os.MkdirAll(filepath.Dir(runFlags.checkpointDB), 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	db, err := checkpoints.OpenFile(cmd.Context(), runFlags.checkpointDB)
	if err != nil {
		return err
	}
	defer db.Close()

	agent := workflow.NewAgent(cfg.Agent, prompts.Defaults())
	rasterizer := workflow.NewRasterizer(cfg.Workflow.MaxConcurrency)

	r := &runner{
		rt: workflow.Runtime{
			Classifier: agent,
			Extractor:  agent,
			Summarizer: agent,
			Logger:     logger,
		},
		cfg: cfg.Workflow,
		pages: func(path string) workflow.PagesProvider {
			return workflow.FilePages(path, rasterizer)
		},
		store:  checkpoints.New(db, logger),
		out:    cmd.OutOrStdout(),
		logger: logger,
	}

	return r.run(cmd.Context(), runRequest{
		batchID: batchID,
		label:   runFlags.label,
		files:   args,
		format:  runFlags.output,
		xlsx:    runFlags.xlsx,
		restart: runFlags.restart,
	})
}

func (r *runner) run(ctx context.Context, req runRequest) error {
	docs, err := localDocuments(req.files, r.pages)
	if err != nil {
		return err
	}

	if req.restart {
		err := r.store.Delete(ctx, req.batchID)
		switch {
		case err == nil:
			r.logger.Info("checkpoint discarded", "batch_id", req.batchID)
		case !errors.Is(err, checkpoints.ErrNotFound):
			return err
		}
	}

	rt := r.rt
	rt.Checkpoints = r.store

	orch, err := workflow.New(rt, r.cfg)
	if err != nil {
		return err
	}

	r.logger.Info("batch run started", "batch_id", req.batchID, "documents", len(docs))

	summary, err := orch.RunBatch(ctx, req.batchID, docs)
	if err != nil {
		if errors.Is(err, workflow.ErrRunFailed) {
			return fmt.Errorf("%w (rerun with --batch-id %s to resume)", err, req.batchID)
		}
		return err
	}

	state, err := r.store.Load(ctx, req.batchID)
	if err != nil {
		return fmt.Errorf("load run state: %w", err)
	}

	report := runReport{
		BatchID:   req.batchID,
		Summary:   summary,
		Documents: state.Records(),
	}

	if err := writeReport(r.out, req.format, report); err != nil {
		return err
	}

	if req.xlsx != "" {
		label := req.label
		if label == "" {
			label = "batch " + req.batchID.String()
		}

		data, err := batches.Report(label, summary, report.Documents)
		if err != nil {
			return err
		}
		if err := os.WriteFile(req.xlsx, data, 0o644); err != nil {
			return fmt.Errorf("write xlsx report: %w", err)
		}
		r.logger.Info("xlsx report written", "path", req.xlsx)
	}

	return nil
}

// localDocuments builds Document Units for files. Ids derive from the
// absolute path so a resumed run matches its checkpoint.
func localDocuments(files []string, pages func(string) workflow.PagesProvider) ([]workflow.Document, error) {
	docs := make([]workflow.Document, len(files))
	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("%w: %w", workflow.ErrInvalidDocument, err)
		}

		docs[i] = workflow.Document{
			ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)),
			Filename: filepath.Base(abs),
			Pages:    pages(abs),
		}
	}
	return docs, nil
}
