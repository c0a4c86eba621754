package storage_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/appart/pkg/storage"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := storage.Config{ConnectionString: "test-connection"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Provider != storage.ProviderAzure {
		t.Errorf("provider: got %s, want azure", cfg.Provider)
	}
	if cfg.ContainerName != "documents" {
		t.Errorf("container_name: got %s, want documents", cfg.ContainerName)
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PROVIDER", "gcs")
	t.Setenv("TEST_BUCKET", "appart-documents")

	env := &storage.Env{
		Provider: "TEST_PROVIDER",
		Bucket:   "TEST_BUCKET",
	}

	cfg := storage.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Provider != storage.ProviderGCS {
		t.Errorf("provider: got %s, want gcs", cfg.Provider)
	}
	if cfg.Bucket != "appart-documents" {
		t.Errorf("bucket: got %s, want appart-documents", cfg.Bucket)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{
			name:    "azure without credentials",
			cfg:     storage.Config{ContainerName: "docs"},
			wantErr: "connection_string or account_url required",
		},
		{
			name: "azure with account url",
			cfg:  storage.Config{AccountURL: "https://appart.blob.core.windows.net"},
		},
		{
			name:    "gcs without bucket",
			cfg:     storage.Config{Provider: storage.ProviderGCS},
			wantErr: "bucket required",
		},
		{
			name:    "unknown provider",
			cfg:     storage.Config{Provider: "s3"},
			wantErr: "unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{
		ContainerName:    "documents",
		ConnectionString: "base-conn",
	}

	base.Merge(&storage.Config{ConnectionString: "overlay-conn", Bucket: "b"})

	if base.ContainerName != "documents" {
		t.Errorf("container_name should remain documents, got %s", base.ContainerName)
	}
	if base.ConnectionString != "overlay-conn" {
		t.Errorf("connection_string: got %s, want overlay-conn", base.ConnectionString)
	}
	if base.Bucket != "b" {
		t.Errorf("bucket: got %s, want b", base.Bucket)
	}
}
