package openapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/appart/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	spec := openapi.NewSpec("appart API", "0.2.0")
	spec.AddServer("/api")
	spec.SetDescription("batch analysis")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi version: got %s, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info.Title != "appart API" || spec.Info.Version != "0.2.0" {
		t.Errorf("info = %+v", spec.Info)
	}
	if spec.Info.Description != "batch analysis" {
		t.Errorf("description: got %s", spec.Info.Description)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" {
		t.Errorf("servers = %+v", spec.Servers)
	}
	if spec.Paths == nil || spec.Components == nil {
		t.Fatal("paths and components must be initialized")
	}
}

func TestRefs(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"schema", openapi.SchemaRef("Batch").Ref, "#/components/schemas/Batch"},
		{"response", openapi.ResponseRef("Conflict").Ref, "#/components/responses/Conflict"},
		{"request body", openapi.RequestBodyJSON("CreateBatch", true).Content["application/json"].Schema.Ref, "#/components/schemas/CreateBatch"},
		{"response json", openapi.ResponseJSON("ok", "BatchSummary").Content["application/json"].Schema.Ref, "#/components/schemas/BatchSummary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("ref: got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestParams(t *testing.T) {
	p := openapi.PathParam("documentId", "Document ID")
	if p.In != "path" || !p.Required || p.Schema.Format != "uuid" {
		t.Errorf("path param = %+v", p)
	}

	q := openapi.QueryParam("category", "string", "Known category", false)
	if q.In != "query" || q.Required || q.Schema.Type != "string" {
		t.Errorf("query param = %+v", q)
	}
}

func TestComponents(t *testing.T) {
	c := openapi.NewComponents()
	c.AddSchemas(map[string]*openapi.Schema{"Batch": {Type: "object"}})
	c.AddResponses(map[string]*openapi.Response{"Locked": {Description: "locked"}})

	for _, name := range []string{"PageRequest", "Batch"} {
		if c.Schemas[name] == nil {
			t.Errorf("missing schema %s", name)
		}
	}
	for _, name := range []string{"BadRequest", "NotFound", "Conflict", "Unprocessable", "Locked"} {
		if c.Responses[name] == nil {
			t.Errorf("missing response %s", name)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	spec := openapi.NewSpec("appart API", "0.2.0")
	path := filepath.Join(t.TempDir(), "openapi.json")

	if err := openapi.WriteJSON(spec, path); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed["openapi"] != "3.1.0" {
		t.Errorf("openapi: got %v", parsed["openapi"])
	}
}

func TestServeSpec(t *testing.T) {
	data, err := openapi.MarshalJSON(openapi.NewSpec("appart API", "0.2.0"))
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}

	rec := httptest.NewRecorder()
	openapi.ServeSpec(data)(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content-type: got %s", ct)
	}
	if rec.Body.String() != string(data) {
		t.Error("body does not match marshaled spec")
	}
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg openapi.Config
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg.Title != "appart API" || cfg.Description == "" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("TEST_OPENAPI_TITLE", "Custom")
		var cfg openapi.Config
		if err := cfg.Finalize(&openapi.ConfigEnv{Title: "TEST_OPENAPI_TITLE"}); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg.Title != "Custom" {
			t.Errorf("title: got %s, want Custom", cfg.Title)
		}
	})

	t.Run("merge", func(t *testing.T) {
		base := openapi.Config{Title: "Base", Description: "keep"}
		base.Merge(&openapi.Config{Title: "Overlay"})
		if base.Title != "Overlay" || base.Description != "keep" {
			t.Errorf("merged = %+v", base)
		}
	})
}
