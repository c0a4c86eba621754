package batches_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/batches"
	"github.com/JaimeStill/appart/internal/documents"
	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/pagination"
	"github.com/JaimeStill/appart/pkg/routes"
)

type mockSystem struct {
	findFn    func(ctx context.Context, id uuid.UUID) (*batches.Batch, error)
	createFn  func(ctx context.Context, cmd batches.CreateCommand) (*batches.Batch, error)
	runFn     func(ctx context.Context, id uuid.UUID) (*batches.Batch, error)
	analyzeFn func(ctx context.Context, documentID uuid.UUID, hint string) (*workflow.ResultRecord, error)
	exportFn  func(ctx context.Context, id uuid.UUID) ([]byte, error)
}

func (m *mockSystem) Handler() *batches.Handler {
	return batches.NewHandler(m, discard(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func (m *mockSystem) List(context.Context, pagination.PageRequest, batches.Filters) (*pagination.PageResult[batches.Batch], error) {
	result := pagination.NewPageResult([]batches.Batch{}, 0, 1, 20)
	return &result, nil
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*batches.Batch, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, cmd batches.CreateCommand) (*batches.Batch, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Run(ctx context.Context, id uuid.UUID) (*batches.Batch, error) {
	return m.runFn(ctx, id)
}

func (m *mockSystem) Analyze(ctx context.Context, documentID uuid.UUID, hint string) (*workflow.ResultRecord, error) {
	return m.analyzeFn(ctx, documentID, hint)
}

func (m *mockSystem) Results(context.Context, uuid.UUID) ([]documents.Result, error) {
	return []documents.Result{}, nil
}

func (m *mockSystem) Export(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return m.exportFn(ctx, id)
}

func setupMux(groups ...routes.Group) *http.ServeMux {
	mux := http.NewServeMux()
	for _, group := range groups {
		for _, route := range group.Routes {
			pattern := route.Method + " " + group.Prefix + route.Pattern
			mux.HandleFunc(pattern, route.Handler)
		}
	}
	return mux
}

func serve(m *mockSystem, method, target, body string) *httptest.ResponseRecorder {
	h := m.Handler()
	mux := setupMux(h.Routes(), h.AnalyzeRoutes())

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerFind(t *testing.T) {
	m := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*batches.Batch, error) {
			if id != batchID {
				return nil, batches.ErrNotFound
			}
			return &batches.Batch{ID: id, Label: "lot", Status: batches.StatusPending}, nil
		},
	}

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"found", "/batches/" + batchID.String(), http.StatusOK},
		{"missing", "/batches/" + uuid.NewString(), http.StatusNotFound},
		{"bad id", "/batches/nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(m, http.MethodGet, tt.target, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerCreate(t *testing.T) {
	doc := uuid.New()

	var got batches.CreateCommand
	m := &mockSystem{
		createFn: func(_ context.Context, cmd batches.CreateCommand) (*batches.Batch, error) {
			got = cmd
			if len(cmd.DocumentIDs) == 0 {
				return nil, batches.ErrInvalidBatch
			}
			return &batches.Batch{ID: batchID, Label: cmd.Label, Status: batches.StatusPending}, nil
		},
	}

	body := `{"label": "lot 4", "document_ids": ["` + doc.String() + `"]}`
	rec := serve(m, http.MethodPost, "/batches", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if got.Label != "lot 4" || len(got.DocumentIDs) != 1 || got.DocumentIDs[0] != doc {
		t.Errorf("command = %+v", got)
	}

	if rec := serve(m, http.MethodPost, "/batches", `{"label": "lot 4"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want 400", rec.Code)
	}
	if rec := serve(m, http.MethodPost, "/batches", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestHandlerRun(t *testing.T) {
	reason := "workflow run failed: acquire failed"

	tests := []struct {
		name string
		run  func(context.Context, uuid.UUID) (*batches.Batch, error)
		want int
	}{
		{
			"completed",
			func(_ context.Context, id uuid.UUID) (*batches.Batch, error) {
				return &batches.Batch{ID: id, Status: batches.StatusCompleted}, nil
			},
			http.StatusOK,
		},
		{
			"failure recorded",
			func(_ context.Context, id uuid.UUID) (*batches.Batch, error) {
				return &batches.Batch{ID: id, Status: batches.StatusFailed, FailureReason: &reason}, nil
			},
			http.StatusOK,
		},
		{
			"already running",
			func(context.Context, uuid.UUID) (*batches.Batch, error) { return nil, batches.ErrRunning },
			http.StatusConflict,
		},
		{
			"empty",
			func(context.Context, uuid.UUID) (*batches.Batch, error) { return nil, workflow.ErrEmptyBatch },
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(&mockSystem{runFn: tt.run}, http.MethodPost, "/batches/"+batchID.String()+"/run", "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerAnalyze(t *testing.T) {
	doc := uuid.New()

	var hint string
	m := &mockSystem{
		analyzeFn: func(_ context.Context, id uuid.UUID, h string) (*workflow.ResultRecord, error) {
			hint = h
			if h == "brochure" {
				return nil, batches.ErrInvalidCategory
			}
			return &workflow.ResultRecord{DocumentID: id, Category: workflow.CategoryTaxNotice, RecurringCost: 1450}, nil
		},
	}

	rec := serve(m, http.MethodPost, "/analyze/"+doc.String()+"?category=taxe_fonciere", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if hint != "taxe_fonciere" {
		t.Errorf("hint = %q", hint)
	}

	var got workflow.ResultRecord
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.DocumentID != doc || got.RecurringCost != 1450 {
		t.Errorf("record = %+v", got)
	}

	if rec := serve(m, http.MethodPost, "/analyze/"+doc.String()+"?category=brochure", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid hint status = %d, want 400", rec.Code)
	}
}

func TestHandlerExport(t *testing.T) {
	m := &mockSystem{
		exportFn: func(context.Context, uuid.UUID) ([]byte, error) {
			return []byte("PK"), nil
		},
	}

	rec := serve(m, http.MethodGet, "/batches/"+batchID.String()+"/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	want := `attachment; filename="batch-` + batchID.String() + `.xlsx"`
	if cd := rec.Header().Get("Content-Disposition"); cd != want {
		t.Errorf("content disposition = %q, want %q", cd, want)
	}
	if rec.Body.String() != "PK" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
