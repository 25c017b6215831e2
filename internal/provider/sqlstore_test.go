package provider

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSQLStoreActiveConfigsOrdering(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	for _, cfg := range []Config{
		{ID: "second", UserID: "u1", Kind: KindOpenAI, Model: "gpt", Priority: 2, IsActive: true},
		{ID: "first", UserID: "u1", Kind: KindAnthropic, Model: "claude", Priority: 1, IsActive: true},
		{ID: "inactive", UserID: "u1", Kind: KindOllama, Model: "m", BaseURL: "http://x", Priority: 0, IsActive: false},
		{ID: "other-user", UserID: "u2", Kind: KindAnthropic, Model: "claude", Priority: 0, IsActive: true},
	} {
		if err := store.Insert(ctx, cfg); err != nil {
			t.Fatalf("Insert(%s): %v", cfg.ID, err)
		}
	}

	configs, err := store.ActiveConfigs(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveConfigs: %v", err)
	}

	if len(configs) != 2 {
		t.Fatalf("expected 2 active configs, got %d", len(configs))
	}
	if configs[0].ID != "first" || configs[1].ID != "second" {
		t.Errorf("priority order broken: %s, %s", configs[0].ID, configs[1].ID)
	}
	if configs[0].Kind != KindAnthropic {
		t.Errorf("kind not round-tripped: %q", configs[0].Kind)
	}
}

func TestSQLStoreDeactivate(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	cfg := Config{ID: "c1", UserID: "u1", Kind: KindAnthropic, Model: "claude", IsActive: true}
	if err := store.Insert(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	if err := store.Deactivate(ctx, "u1", "c1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	active, err := store.ActiveConfigs(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("deactivated config still active: %+v", active)
	}

	all, err := store.AllConfigs(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].IsActive {
		t.Errorf("row should survive deactivation as inactive: %+v", all)
	}
}

func TestSQLStoreDeactivateMissing(t *testing.T) {
	store := newTestSQLStore(t)
	if err := store.Deactivate(context.Background(), "u1", "nope"); err == nil {
		t.Error("expected error for unknown config id")
	}
}
