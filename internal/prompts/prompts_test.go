package prompts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/JaimeStill/appart/internal/prompts"
)

func TestParseStage(t *testing.T) {
	for _, s := range prompts.Stages() {
		if got, err := prompts.ParseStage(string(s)); err != nil || got != s {
			t.Errorf("ParseStage(%q) = %q, %v", s, got, err)
		}
	}

	if _, err := prompts.ParseStage("enhance"); !errors.Is(err, prompts.ErrInvalidStage) {
		t.Errorf("err = %v, want ErrInvalidStage", err)
	}
}

func TestStageUnmarshalJSON(t *testing.T) {
	var s prompts.Stage
	if err := json.Unmarshal([]byte(`"diagnostic"`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != prompts.StageDiagnostic {
		t.Errorf("stage = %q", s)
	}

	if err := json.Unmarshal([]byte(`"bogus"`), &s); !errors.Is(err, prompts.ErrInvalidStage) {
		t.Errorf("err = %v, want ErrInvalidStage", err)
	}
}

func TestDefaultsCoverEveryStage(t *testing.T) {
	src := prompts.Defaults()
	for _, s := range prompts.Stages() {
		if text, err := src.Instructions(context.Background(), s); err != nil || text == "" {
			t.Errorf("instructions(%s) = %q, %v", s, text, err)
		}
		if text, err := src.Spec(context.Background(), s); err != nil || text == "" {
			t.Errorf("spec(%s) = %q, %v", s, text, err)
		}
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{prompts.ErrNotFound, http.StatusNotFound},
		{prompts.ErrInvalidStage, http.StatusBadRequest},
		{prompts.ErrEmptyInstructions, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := prompts.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func newRepo(t *testing.T) (prompts.System, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return prompts.New(db, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

var overrideColumns = []string{"stage", "instructions", "updated_at"}

func TestRepoInstructions(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM public.prompts p WHERE p.stage = $1")).
			WithArgs(string(prompts.StageTaxNotice)).
			WillReturnRows(sqlmock.NewRows(overrideColumns))

		got, err := sys.Instructions(context.Background(), prompts.StageTaxNotice)
		if err != nil {
			t.Fatalf("instructions: %v", err)
		}

		want, _ := prompts.Instructions(prompts.StageTaxNotice)
		if got != want {
			t.Errorf("instructions = %q, want default", got)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("returns override", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM public.prompts p WHERE p.stage = $1")).
			WithArgs(string(prompts.StageTaxNotice)).
			WillReturnRows(sqlmock.NewRows(overrideColumns).
				AddRow("tax_notice", "Report the due date first.", time.Now()))

		got, err := sys.Instructions(context.Background(), prompts.StageTaxNotice)
		if err != nil {
			t.Fatalf("instructions: %v", err)
		}
		if got != "Report the due date first." {
			t.Errorf("instructions = %q", got)
		}
	})

	t.Run("rejects unknown stage", func(t *testing.T) {
		sys, _ := newRepo(t)
		if _, err := sys.Instructions(context.Background(), "finalize"); !errors.Is(err, prompts.ErrInvalidStage) {
			t.Errorf("err = %v, want ErrInvalidStage", err)
		}
	})
}

func TestRepoList(t *testing.T) {
	sys, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.stage, p.instructions, p.updated_at FROM public.prompts p")).
		WillReturnRows(sqlmock.NewRows(overrideColumns).
			AddRow("diagnostic", "Rate energy class first.", time.Now()))

	entries, err := sys.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(entries) != len(prompts.Stages()) {
		t.Fatalf("entries = %d, want %d", len(entries), len(prompts.Stages()))
	}

	for _, e := range entries {
		wantOverride := e.Stage == prompts.StageDiagnostic
		if e.Overridden != wantOverride {
			t.Errorf("%s overridden = %v, want %v", e.Stage, e.Overridden, wantOverride)
		}
		if e.Spec == "" {
			t.Errorf("%s spec empty", e.Stage)
		}
	}
}

func TestRepoSet(t *testing.T) {
	t.Run("upserts override", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO prompts(stage, instructions)")).
			WithArgs(string(prompts.StageSynthesize), "Lead with risks.").
			WillReturnRows(sqlmock.NewRows(overrideColumns).
				AddRow("synthesize", "Lead with risks.", time.Now()))
		mock.ExpectCommit()

		e, err := sys.Set(context.Background(), prompts.StageSynthesize, prompts.SetCommand{Instructions: "  Lead with risks. "})
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		if !e.Overridden || e.Instructions != "Lead with risks." {
			t.Errorf("entry = %+v", e)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("rejects blank instructions", func(t *testing.T) {
		sys, _ := newRepo(t)
		_, err := sys.Set(context.Background(), prompts.StageSynthesize, prompts.SetCommand{Instructions: "   "})
		if !errors.Is(err, prompts.ErrEmptyInstructions) {
			t.Errorf("err = %v, want ErrEmptyInstructions", err)
		}
	})
}

func TestRepoReset(t *testing.T) {
	t.Run("deletes override", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM prompts WHERE stage = $1")).
			WithArgs(string(prompts.StageClassify)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := sys.Reset(context.Background(), prompts.StageClassify); err != nil {
			t.Fatalf("reset: %v", err)
		}
	})

	t.Run("missing override", func(t *testing.T) {
		sys, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM prompts WHERE stage = $1")).
			WithArgs(string(prompts.StageClassify)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		if err := sys.Reset(context.Background(), prompts.StageClassify); !errors.Is(err, prompts.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
