package main

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 || len(names)%2 != 0 {
		t.Fatalf("migrations = %v, want up/down pairs", names)
	}

	up, err := fs.ReadFile(migrations, "migrations/000001_initial_schema.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"batches", "documents", "document_results", "prompts", "run_checkpoints"} {
		if !strings.Contains(string(up), "CREATE TABLE "+table+" (") {
			t.Errorf("schema is missing table %s", table)
		}
	}
}

func TestResolveDSN(t *testing.T) {
	t.Setenv(envDSN, "")
	dsn = ""
	if got := resolveDSN(); got != defaultDSN {
		t.Errorf("default dsn = %q", got)
	}

	t.Setenv(envDSN, "postgres://env")
	if got := resolveDSN(); got != "postgres://env" {
		t.Errorf("env dsn = %q", got)
	}

	dsn = "postgres://flag"
	t.Cleanup(func() { dsn = "" })
	if got := resolveDSN(); got != "postgres://flag" {
		t.Errorf("flag dsn = %q", got)
	}
}

func TestIgnoreNoChange(t *testing.T) {
	if err := ignoreNoChange(migrate.ErrNoChange); err != nil {
		t.Errorf("ErrNoChange not ignored: %v", err)
	}
	boom := errors.New("boom")
	if err := ignoreNoChange(boom); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
