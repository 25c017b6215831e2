package finance

import (
	"context"
	"math"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedFixture loads one user with two accounts, a grocery-heavy July,
// and monthly balance snapshots.
func seedFixture(t *testing.T, store *Store) {
	t.Helper()
	db := store.DB()

	exec := func(query string, args ...any) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	exec(`INSERT INTO accounts (id, user_id, name, type, institution) VALUES
		('a1', 'u1', 'Everyday Checking', 'checking', 'First Bank'),
		('a2', 'u1', 'Rainy Day Savings', 'savings', 'First Bank'),
		('b1', 'u2', 'Other User Account', 'checking', 'Second Bank')`)

	txs := []struct {
		id, account, date, category, merchant string
		amount                                float64
	}{
		{"t1", "a1", "2026-07-02", "groceries", "Green Grocer", -54.10},
		{"t2", "a1", "2026-07-09", "groceries", "Corner Market", -102.40},
		{"t3", "a1", "2026-07-21", "groceries", "Green Grocer", -128.83},
		{"t4", "a1", "2026-07-05", "dining", "Cafe Uno", -36.00},
		{"t5", "a1", "2026-07-15", "salary", "Acme Corp", 4200.00},
		{"t6", "a1", "2026-06-11", "groceries", "Green Grocer", -77.25},
		{"t7", "a1", "2026-06-20", "dining", "Cafe Uno", -22.50},
		// Other user's data must never leak into u1 aggregates.
		{"x1", "b1", "2026-07-10", "groceries", "Green Grocer", -999.99},
	}
	for _, tx := range txs {
		user := "u1"
		if tx.account == "b1" {
			user = "u2"
		}
		exec(`INSERT INTO transactions (id, user_id, account_id, posted_at, amount, category, merchant)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tx.id, user, tx.account, tx.date, tx.amount, tx.category, tx.merchant)
	}

	exec(`INSERT INTO balance_snapshots (account_id, user_id, taken_at, balance) VALUES
		('a1', 'u1', '2026-06-30', 3100.00),
		('a1', 'u1', '2026-07-31', 5200.50),
		('a2', 'u1', '2026-06-30', 10000.00),
		('a2', 'u1', '2026-07-31', 10050.00)`)
}

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func approx(a, b float64) bool { return math.Abs(a-b) < 0.001 }

func TestSearchTransactionsCategoryAndPeriod(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	agg, err := store.SearchTransactions(context.Background(), "u1", TransactionQuery{
		From:     date("2026-07-01"),
		To:       date("2026-07-31"),
		Category: "groceries",
	})
	if err != nil {
		t.Fatalf("SearchTransactions: %v", err)
	}

	if agg.Count != 3 {
		t.Errorf("count = %d, want 3", agg.Count)
	}
	if !approx(agg.TotalSpent, 285.33) {
		t.Errorf("total spent = %.2f, want 285.33", agg.TotalSpent)
	}
	if !approx(agg.AverageSpent, 285.33/3) {
		t.Errorf("average = %.2f", agg.AverageSpent)
	}
	if agg.TotalIncome != 0 {
		t.Errorf("income = %.2f, want 0", agg.TotalIncome)
	}
}

func TestSearchTransactionsOpenEndedRange(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	// Zero To must not collapse the upper bound to year one.
	agg, err := store.SearchTransactions(context.Background(), "u1", TransactionQuery{
		From:     date("2026-07-01"),
		Category: "groceries",
	})
	if err != nil {
		t.Fatal(err)
	}
	if agg.Count != 3 {
		t.Errorf("open-ended range count = %d, want 3", agg.Count)
	}

	all, err := store.SearchTransactions(context.Background(), "u1", TransactionQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Count != 7 {
		t.Errorf("unbounded count = %d, want 7", all.Count)
	}
}

func TestSearchTransactionsMerchantFilter(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	agg, err := store.SearchTransactions(context.Background(), "u1", TransactionQuery{Merchant: "green"})
	if err != nil {
		t.Fatal(err)
	}
	// Merchant matching is case-insensitive substring via LIKE.
	if agg.Count != 3 {
		t.Errorf("merchant filter count = %d, want 3", agg.Count)
	}
}

func TestBalancesLatestSnapshotOnly(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	balances, total, err := store.Balances(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(balances))
	}
	if !approx(total, 15250.50) {
		t.Errorf("total = %.2f, want 15250.50 (latest snapshots only)", total)
	}
	for _, b := range balances {
		if b.Account == "Everyday Checking" && !approx(b.Balance, 5200.50) {
			t.Errorf("checking balance = %.2f, want latest 5200.50", b.Balance)
		}
	}
}

func TestSpendingByCategoryOrdering(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	totals, err := store.SpendingByCategory(context.Background(), "u1", date("2026-07-01"), date("2026-07-31"))
	if err != nil {
		t.Fatalf("SpendingByCategory: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected groceries + dining, got %+v", totals)
	}
	if totals[0].Category != "groceries" {
		t.Errorf("largest category first, got %q", totals[0].Category)
	}
	if !approx(totals[0].Total, 285.33) {
		t.Errorf("groceries total = %.2f", totals[0].Total)
	}
	if totals[1].Category != "dining" || totals[1].Count != 1 {
		t.Errorf("dining row = %+v", totals[1])
	}
}

func TestIncomeBreakdown(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	totals, err := store.IncomeBreakdown(context.Background(), "u1", date("2026-07-01"), date("2026-07-31"))
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 1 || totals[0].Category != "salary" || !approx(totals[0].Total, 4200.00) {
		t.Errorf("income breakdown = %+v", totals)
	}
}

func TestComparePeriods(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	cmp, err := store.ComparePeriods(context.Background(), "u1",
		date("2026-06-01"), date("2026-06-30"),
		date("2026-07-01"), date("2026-07-31"))
	if err != nil {
		t.Fatalf("ComparePeriods: %v", err)
	}

	if !approx(cmp.First.TotalSpent, 99.75) {
		t.Errorf("june spend = %.2f, want 99.75", cmp.First.TotalSpent)
	}
	if !approx(cmp.Second.TotalSpent, 321.33) {
		t.Errorf("july spend = %.2f, want 321.33", cmp.Second.TotalSpent)
	}
	if !approx(cmp.SpentDelta, 321.33-99.75) {
		t.Errorf("spent delta = %.2f", cmp.SpentDelta)
	}
	if !approx(cmp.IncomeDelta, 4200.00) {
		t.Errorf("income delta = %.2f", cmp.IncomeDelta)
	}
}

func TestNetWorthHistoryMonthlyPoints(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	points, err := store.NetWorthHistory(context.Background(), "u1", 60)
	if err != nil {
		t.Fatalf("NetWorthHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected june + july points, got %+v", points)
	}
	if points[0].Month != "2026-06" || !approx(points[0].NetWorth, 13100.00) {
		t.Errorf("june point = %+v", points[0])
	}
	if points[1].Month != "2026-07" || !approx(points[1].NetWorth, 15250.50) {
		t.Errorf("july point = %+v", points[1])
	}
}

func TestSummary(t *testing.T) {
	store := newTestStore(t)
	seedFixture(t, store)

	sum, err := store.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.AccountCount != 2 {
		t.Errorf("account count = %d", sum.AccountCount)
	}
	if len(sum.AccountTypes) != 2 {
		t.Errorf("account types = %v", sum.AccountTypes)
	}
	if !approx(sum.NetWorth, 15250.50) {
		t.Errorf("net worth = %.2f", sum.NetWorth)
	}
	if sum.OldestTx != "2026-06-11" || sum.NewestTx != "2026-07-15" {
		t.Errorf("transaction range = %s..%s", sum.OldestTx, sum.NewestTx)
	}
}

func TestSummaryEmptyUser(t *testing.T) {
	store := newTestStore(t)

	sum, err := store.Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Summary on empty data: %v", err)
	}
	if sum.AccountCount != 0 || sum.OldestTx != "" {
		t.Errorf("empty summary = %+v", sum)
	}
}
