package batches_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/documents"
	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/activity"
	"github.com/JaimeStill/appart/pkg/pagination"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// labelPages serves one page whose image is the storage key, so the fake
// capabilities can recognize documents.
func labelPages(key string) workflow.PagesProvider {
	return func(context.Context) ([]workflow.Page, error) {
		if key == "" {
			return nil, errors.New("blob not found")
		}
		return []workflow.Page{{Number: 1, Image: []byte(key)}}, nil
	}
}

type classifier map[string]workflow.Category

func (c classifier) Classify(_ context.Context, pages []workflow.Page) (workflow.Classification, error) {
	category, ok := c[string(pages[0].Image)]
	if !ok {
		category = "other"
	}
	return workflow.Classification{Category: category, Confidence: 0.9}, nil
}

type extractor map[string]string

func (e extractor) Extract(_ context.Context, pages []workflow.Page, _ workflow.Category) (json.RawMessage, error) {
	out, ok := e[string(pages[0].Image)]
	if !ok {
		out = `{"summary": "nothing notable"}`
	}
	return json.RawMessage(out), nil
}

type summarizer struct{}

func (summarizer) Summarize(context.Context, []workflow.ResultRecord) (workflow.Synthesis, error) {
	return workflow.Synthesis{
		Summary:   "Sound building.",
		RiskLevel: "low",
	}, nil
}

func testRuntime() workflow.Runtime {
	return workflow.Runtime{
		Classifier: classifier{
			"tax":     workflow.CategoryTaxNotice,
			"charges": workflow.CategoryChargesStatement,
		},
		Extractor: extractor{
			"tax":     `{"summary": "Taxe foncière", "total_amount": 1450}`,
			"charges": `{"summary": "Charges", "total_charges": 2400}`,
		},
		Summarizer: summarizer{},
		Executor: activity.New(activity.Policy{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Coefficient:     2,
		}, discard()),
		Logger: discard(),
	}
}

type fakeDocuments struct {
	mu       sync.Mutex
	docs     []documents.Document
	statuses map[uuid.UUID]workflow.Status
	results  map[uuid.UUID]workflow.ResultRecord
}

func newFakeDocuments(docs ...documents.Document) *fakeDocuments {
	return &fakeDocuments{
		docs:     docs,
		statuses: make(map[uuid.UUID]workflow.Status),
		results:  make(map[uuid.UUID]workflow.ResultRecord),
	}
}

func (f *fakeDocuments) Handler(int64) *documents.Handler { return nil }

func (f *fakeDocuments) List(context.Context, pagination.PageRequest, documents.Filters) (*pagination.PageResult[documents.Document], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDocuments) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	for _, d := range f.docs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, documents.ErrNotFound
}

func (f *fakeDocuments) ListByBatch(context.Context, uuid.UUID) ([]documents.Document, error) {
	return f.docs, nil
}

func (f *fakeDocuments) Create(context.Context, documents.CreateCommand) (*documents.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDocuments) Delete(context.Context, uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeDocuments) SetStatus(_ context.Context, id uuid.UUID, status workflow.Status, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeDocuments) SaveResult(_ context.Context, id uuid.UUID, record workflow.ResultRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[id] = record
	return nil
}

func (f *fakeDocuments) FindResult(_ context.Context, id uuid.UUID) (*documents.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[id]
	if !ok {
		return nil, documents.ErrResultNotFound
	}
	return &documents.Result{ResultRecord: r}, nil
}

func (f *fakeDocuments) ResultsByBatch(context.Context, uuid.UUID) ([]documents.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]documents.Result, 0, len(f.docs))
	for _, d := range f.docs {
		if r, ok := f.results[d.ID]; ok {
			out = append(out, documents.Result{BatchID: d.BatchID, ResultRecord: r})
		}
	}
	return out, nil
}

func (f *fakeDocuments) status(id uuid.UUID) workflow.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}
