// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

func setupTestStore(t *testing.T) *DuckDBStore {
	t.Helper()
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store := NewDuckDBStore(db)
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	// Idempotent.
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("second CreateTable: %v", err)
	}
	return store
}

func TestDuckDBStore_SaveAndQuery(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	events := []Event{
		{ID: "e1", Timestamp: base, Type: EventTypeReaderBound, Outcome: OutcomeSuccess,
			ActorID: "oA", ActorType: ActorReader, TargetID: "2020012345", TargetType: "reader_card",
			Description: "bound", Metadata: []byte(`{"reader_type":"证件号"}`)},
		{ID: "e2", Timestamp: base.Add(time.Minute), Type: EventTypeReaderUnbound, Outcome: OutcomeSuccess,
			ActorID: "oA", ActorType: ActorReader, Description: "unbound"},
		{ID: "e3", Timestamp: base.Add(2 * time.Minute), Type: EventTypeReflectionModerated, Outcome: OutcomeSuccess,
			ActorID: "oAdmin", ActorType: ActorReader, TargetID: "7", TargetType: "reflection",
			Description: "hidden", SourceIP: "10.0.0.1", RequestID: "req-1"},
	}
	for i := range events {
		if err := store.Save(ctx, &events[i]); err != nil {
			t.Fatalf("Save(%s): %v", events[i].ID, err)
		}
	}

	all, err := store.Query(ctx, DefaultQueryFilter())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "e3" || all[2].ID != "e1" {
		t.Fatalf("Query(all) order = %v", ids(all))
	}
	if all[0].SourceIP != "10.0.0.1" || all[0].RequestID != "req-1" || all[0].TargetType != "reflection" {
		t.Errorf("e3 round trip = %+v", all[0])
	}
	if string(all[2].Metadata) == "" {
		t.Error("e1 metadata lost")
	}
	if all[1].TargetID != "" {
		t.Errorf("e2 TargetID = %q, want empty", all[1].TargetID)
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"by type", QueryFilter{Types: []EventType{EventTypeReaderBound, EventTypeReaderUnbound}}, []string{"e2", "e1"}},
		{"by actor", QueryFilter{ActorID: "oAdmin"}, []string{"e3"}},
		{"by target", QueryFilter{TargetID: "2020012345"}, []string{"e1"}},
		{"since", QueryFilter{Since: base.Add(time.Minute)}, []string{"e3", "e2"}},
		{"limit", QueryFilter{Limit: 1}, []string{"e3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("Query() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestDuckDBStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new"} {
		e := Event{ID: id, Timestamp: base.AddDate(0, 0, i*10), Type: EventTypeLogin,
			Outcome: OutcomeSuccess, ActorID: "oA", ActorType: ActorReader, Description: "login"}
		if err := store.Save(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.Delete(ctx, base.AddDate(0, 0, 5))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Delete() = %d, want 1", n)
	}
	left, _ := store.Query(ctx, QueryFilter{})
	if !equalIDs(ids(left), []string{"new"}) {
		t.Errorf("remaining = %v", ids(left))
	}
}

func TestDuckDBStore_SaveNil(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) = nil, want error")
	}
}

func ids(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
