package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/finsight/finsight/internal/finance"
	"github.com/finsight/finsight/internal/llm"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	store, err := finance.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	db := store.DB()
	stmts := []string{
		`INSERT INTO accounts (id, user_id, name, type) VALUES
			('a1', 'u1', 'Checking', 'checking'),
			('a2', 'u1', 'Savings', 'savings')`,
		`INSERT INTO transactions (id, user_id, account_id, posted_at, amount, category, merchant) VALUES
			('t1', 'u1', 'a1', '2026-07-02', -54.10, 'groceries', 'Green Grocer'),
			('t2', 'u1', 'a1', '2026-07-09', -102.40, 'groceries', 'Corner Market'),
			('t3', 'u1', 'a1', '2026-07-21', -128.83, 'groceries', 'Green Grocer'),
			('t4', 'u1', 'a1', '2026-07-15', 4200.00, 'salary', 'Acme Corp')`,
		`INSERT INTO balance_snapshots (account_id, user_id, taken_at, balance) VALUES
			('a1', 'u1', '2026-07-31', 5200.50),
			('a2', 'u1', '2026-07-31', 10050.00)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewExecutor(store, nil)
}

func TestExecuteQueryTransactions(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Execute(context.Background(), "u1", llm.ToolCall{
		ID:   "call_1",
		Name: ToolQueryTransactions,
		Input: map[string]any{
			"start_date": "2026-07-01",
			"end_date":   "2026-07-31",
			"category":   "groceries",
		},
	})

	agg, ok := result.Data.(*finance.TransactionAggregate)
	if !ok {
		t.Fatalf("data type = %T", result.Data)
	}
	if agg.Count != 3 {
		t.Errorf("count = %d", agg.Count)
	}
	if !strings.Contains(result.Summary, "3 groceries transactions") {
		t.Errorf("summary = %q", result.Summary)
	}
	if len(result.Sources) != 1 || result.Sources[0].DateRange != "2026-07-01 to 2026-07-31" {
		t.Errorf("sources = %+v", result.Sources)
	}
}

func TestExecuteGetBalances(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Execute(context.Background(), "u1", llm.ToolCall{
		ID: "call_2", Name: ToolGetBalances, Input: map[string]any{},
	})

	if !strings.Contains(result.Summary, "2 accounts") {
		t.Errorf("summary = %q", result.Summary)
	}
	data, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type = %T", result.Data)
	}
	if data["total"] != 15250.50 {
		t.Errorf("total = %v", data["total"])
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Execute(context.Background(), "u1", llm.ToolCall{
		ID: "call_3", Name: "transfer_funds", Input: map[string]any{},
	})

	data, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type = %T", result.Data)
	}
	if _, hasErr := data["error"]; !hasErr {
		t.Error("unknown tool must produce an error payload, not a Go error")
	}
	if !strings.Contains(result.Summary, "transfer_funds") {
		t.Errorf("summary should name the unknown tool: %q", result.Summary)
	}
}

func TestExecuteMissingRequiredDate(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Execute(context.Background(), "u1", llm.ToolCall{
		ID: "call_4", Name: ToolQueryTransactions, Input: map[string]any{"start_date": "2026-07-01"},
	})

	data := result.Data.(map[string]any)
	msg, _ := data["error"].(string)
	if !strings.Contains(msg, "end_date") {
		t.Errorf("error should name the missing parameter: %q", msg)
	}
}

func TestExecuteInvalidDateFormat(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Execute(context.Background(), "u1", llm.ToolCall{
		ID: "call_5", Name: ToolSpendingByCategory, Input: map[string]any{
			"start_date": "July 1st",
			"end_date":   "2026-07-31",
		},
	})

	data := result.Data.(map[string]any)
	msg, _ := data["error"].(string)
	if !strings.Contains(msg, "YYYY-MM-DD") {
		t.Errorf("error should state the expected format: %q", msg)
	}
}

func TestExecuteComparePeriods(t *testing.T) {
	exec := newTestExecutor(t)

	result := exec.Execute(context.Background(), "u1", llm.ToolCall{
		ID: "call_6", Name: ToolComparePeriods, Input: map[string]any{
			"first_start":  "2026-06-01",
			"first_end":    "2026-06-30",
			"second_start": "2026-07-01",
			"second_end":   "2026-07-31",
		},
	})

	cmp, ok := result.Data.(*finance.PeriodComparison)
	if !ok {
		t.Fatalf("data type = %T", result.Data)
	}
	if cmp.Second.Count != 4 {
		t.Errorf("second period count = %d", cmp.Second.Count)
	}
	if !strings.Contains(result.Summary, "Spending changed by") {
		t.Errorf("summary = %q", result.Summary)
	}
}

func TestIntArgCoercion(t *testing.T) {
	// JSON numbers decode as float64; both forms must work.
	if got := intArg(map[string]any{"months": float64(6)}, "months", 12); got != 6 {
		t.Errorf("float64 arg = %d", got)
	}
	if got := intArg(map[string]any{"months": 6}, "months", 12); got != 6 {
		t.Errorf("int arg = %d", got)
	}
	if got := intArg(map[string]any{}, "months", 12); got != 12 {
		t.Errorf("fallback = %d", got)
	}
}
