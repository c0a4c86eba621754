package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/activity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastExecutor() *activity.Supervisor {
	return activity.New(activity.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Coefficient:     2,
	}, discardLogger())
}

// pagesOf returns a provider whose single page image carries label, so
// fakes can tell documents apart.
func pagesOf(label string) workflow.PagesProvider {
	return func(context.Context) ([]workflow.Page, error) {
		return []workflow.Page{{Number: 1, Image: []byte(label)}}, nil
	}
}

func failingPages(err error) workflow.PagesProvider {
	return func(context.Context) ([]workflow.Page, error) {
		return nil, err
	}
}

func doc(label string) workflow.Document {
	return workflow.Document{
		ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte(label)),
		Filename: label + ".pdf",
		Pages:    pagesOf(label),
	}
}

type fakeClassifier struct {
	mu     sync.Mutex
	labels map[string]workflow.Category
	fail   map[string]bool
	hook   func(ctx context.Context, label string)
	calls  map[string]int
}

func newFakeClassifier(labels map[string]workflow.Category) *fakeClassifier {
	return &fakeClassifier{
		labels: labels,
		fail:   make(map[string]bool),
		calls:  make(map[string]int),
	}
}

func (f *fakeClassifier) Classify(ctx context.Context, pages []workflow.Page) (workflow.Classification, error) {
	label := string(pages[0].Image)

	f.mu.Lock()
	f.calls[label]++
	fail := f.fail[label]
	category, ok := f.labels[label]
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, label)
		if err := ctx.Err(); err != nil {
			return workflow.Classification{}, err
		}
	}

	if fail {
		return workflow.Classification{}, errors.New("model unavailable")
	}
	if !ok {
		category = "brochure"
	}
	return workflow.Classification{Category: category, Confidence: 0.9}, nil
}

func (f *fakeClassifier) Calls(label string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[label]
}

type fakeExtractor struct {
	mu      sync.Mutex
	outputs map[string]string
	fail    map[string]error
	calls   map[string]int
}

func newFakeExtractor(outputs map[string]string) *fakeExtractor {
	return &fakeExtractor{
		outputs: outputs,
		fail:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeExtractor) Extract(_ context.Context, pages []workflow.Page, _ workflow.Category) (json.RawMessage, error) {
	label := string(pages[0].Image)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[label]++
	if err := f.fail[label]; err != nil {
		return nil, err
	}
	out, ok := f.outputs[label]
	if !ok {
		out = `{"summary": "nothing notable"}`
	}
	return json.RawMessage(out), nil
}

func (f *fakeExtractor) Calls(label string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[label]
}

type fakeSummarizer struct {
	mu      sync.Mutex
	result  workflow.Synthesis
	err     error
	calls   int
	records []workflow.ResultRecord
}

func newFakeSummarizer() *fakeSummarizer {
	return &fakeSummarizer{
		result: workflow.Synthesis{
			Summary:         "Well-kept building with voted roof works.",
			RiskLevel:       "medium",
			KeyFindings:     []string{"Roof works voted for next year"},
			Recommendations: []string{"Negotiate the price against voted works"},
			CategorySummaries: map[workflow.Category]string{
				workflow.CategoryMeetingMinutes: "Two assemblies reviewed.",
			},
		},
	}
}

func (f *fakeSummarizer) Summarize(_ context.Context, records []workflow.ResultRecord) (workflow.Synthesis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.records = records
	if f.err != nil {
		return workflow.Synthesis{}, f.err
	}
	return f.result, nil
}

func (f *fakeSummarizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSummarizer) Records() []workflow.ResultRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records
}

type harness struct {
	orch        *workflow.Orchestrator
	store       *workflow.MemoryStore
	checkpoints *workflow.MemoryCheckpoints
	classifier  *fakeClassifier
	extractor   *fakeExtractor
	summarizer  *fakeSummarizer
}

func newHarness(t *testing.T, cfg workflow.Config, labels map[string]workflow.Category, outputs map[string]string) *harness {
	t.Helper()

	h := &harness{
		store:       workflow.NewMemoryStore(),
		checkpoints: workflow.NewMemoryCheckpoints(),
		classifier:  newFakeClassifier(labels),
		extractor:   newFakeExtractor(outputs),
		summarizer:  newFakeSummarizer(),
	}

	orch, err := workflow.New(workflow.Runtime{
		Classifier:  h.classifier,
		Extractor:   h.extractor,
		Summarizer:  h.summarizer,
		Persistence: h.store,
		Checkpoints: h.checkpoints,
		Executor:    fastExecutor(),
		Logger:      discardLogger(),
	}, cfg)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	h.orch = orch
	return h
}

func (h *harness) checkpoint(t *testing.T, batchID uuid.UUID) *workflow.RunState {
	t.Helper()
	rs, err := h.checkpoints.Load(context.Background(), batchID)
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if rs == nil {
		t.Fatal("no checkpoint saved")
	}
	return rs
}

func (h *harness) status(id uuid.UUID) workflow.Status {
	s, _ := h.store.Status(id)
	return s
}
