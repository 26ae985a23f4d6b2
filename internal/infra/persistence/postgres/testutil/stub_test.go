package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBStoresAndQueriesBuckets(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	_, err := conn.ExecContext(ctx, "INSERT INTO state(bucket,payload) VALUES($1,$2)", []driver.NamedValue{
		{Value: "medicines"},
		{Value: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("ExecContext insert: %v", err)
	}
	if string(conn.Buckets["medicines"]) != "{}" {
		t.Fatalf("expected bucket to be stored, got %v", conn.Buckets)
	}

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()

	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "medicines" {
		t.Fatalf("unexpected row values: %v", dest)
	}
}

func TestStubDBRejectsUnknownQueries(t *testing.T) {
	_, conn := NewStubDB()
	if _, err := conn.QueryContext(context.Background(), "SELECT 1", nil); err == nil {
		t.Fatalf("expected unsupported query error")
	}
}
