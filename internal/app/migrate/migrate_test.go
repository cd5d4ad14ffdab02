package migrate

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestNewValidatesInputs(t *testing.T) {
	if _, err := New(nil, "postgres://x", t.TempDir(), nil); err == nil {
		t.Fatal("expected error for nil pool")
	}

	pool := &pgxpool.Pool{}
	if _, err := New(pool, "", t.TempDir(), nil); err == nil {
		t.Fatal("expected error for empty dsn")
	}
	if _, err := New(pool, "postgres://x", "", nil); err == nil {
		t.Fatal("expected error for empty migrations dir")
	}
	if _, err := New(pool, "postgres://x", t.TempDir()+"/missing", nil); err == nil {
		t.Fatal("expected error for missing migrations dir")
	}
	runner, err := New(pool, "postgres://x", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.log == nil {
		t.Fatal("expected default logger")
	}
}
