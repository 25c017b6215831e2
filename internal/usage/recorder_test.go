package usage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestSQLRecorderRoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	recorder, err := NewSQLRecorder(db)
	if err != nil {
		t.Fatal(err)
	}

	entry := Entry{
		UserID:       "u1",
		Provider:     "anthropic",
		Model:        "claude-test",
		Kind:         "agent",
		InputTokens:  120,
		OutputTokens: 45,
		ToolCalls:    3,
		Success:      true,
		Timestamp:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := recorder.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var (
		provider string
		kind     string
		in, out  int
		calls    int
		success  bool
	)
	err = db.QueryRow(`SELECT provider, kind, input_tokens, output_tokens, tool_calls, success FROM llm_usage WHERE user_id = 'u1'`).
		Scan(&provider, &kind, &in, &out, &calls, &success)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if provider != "anthropic" || kind != "agent" || in != 120 || out != 45 || calls != 3 || !success {
		t.Errorf("row = %s %s %d %d %d %v", provider, kind, in, out, calls, success)
	}
}

func TestSQLRecorderDefaultsTimestamp(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	recorder, err := NewSQLRecorder(db)
	if err != nil {
		t.Fatal(err)
	}
	if err := recorder.Record(context.Background(), Entry{UserID: "u1", Provider: "ollama", Kind: "completion"}); err != nil {
		t.Fatal(err)
	}

	var created time.Time
	if err := db.QueryRow(`SELECT created_at FROM llm_usage`).Scan(&created); err != nil {
		t.Fatal(err)
	}
	if created.IsZero() {
		t.Error("zero timestamp should be defaulted at record time")
	}
}

func TestLogRecorderNeverFails(t *testing.T) {
	recorder := NewLogRecorder(nil)
	if err := recorder.Record(context.Background(), Entry{UserID: "u1", Provider: "x", Kind: "agent", Error: "boom"}); err != nil {
		t.Errorf("LogRecorder.Record: %v", err)
	}
}
