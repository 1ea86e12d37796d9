package postgres

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestParseTime(t *testing.T) {
	ts, err := parseTime("2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ts.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp mismatch: %s", ts)
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Fatalf("expected error for invalid timestamp")
	}
	if ts, err := parseTime(""); err != nil || ts.IsZero() {
		t.Fatalf("empty value should default to now: %v %v", ts, err)
	}
}

func TestSchemaDeclaresHistoryTables(t *testing.T) {
	for _, table := range []string{"deployments", "mints", "reveal_observations"} {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("schema missing table %s", table)
		}
	}
	if got := nonNil(nil); got == nil || len(got) != 0 {
		t.Fatalf("nonNil mismatch: %#v", got)
	}
}
