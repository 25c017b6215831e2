// Package finance implements the read-only analytics queries behind the
// tool catalog. Every query aggregates; line-item detail never leaves
// this package, because tool summaries are echoed back into model
// context and ultimately the user-visible answer.
package finance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store runs aggregate queries over the financial database.
type Store struct {
	db *sql.DB
}

// Open opens the sqlite database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := &Store{db: db}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

// DB exposes the underlying handle for collaborators sharing the file.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			institution TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			posted_at DATE NOT NULL,
			amount REAL NOT NULL,
			category TEXT NOT NULL DEFAULT 'uncategorized',
			merchant TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS balance_snapshots (
			account_id TEXT NOT NULL REFERENCES accounts(id),
			user_id TEXT NOT NULL,
			taken_at DATE NOT NULL,
			balance REAL NOT NULL,
			PRIMARY KEY (account_id, taken_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_user_date ON transactions(user_id, posted_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// TransactionQuery bounds a transaction aggregation.
type TransactionQuery struct {
	From     time.Time
	To       time.Time
	Category string
	Merchant string
}

// TransactionAggregate summarizes matching transactions without
// exposing individual line items.
type TransactionAggregate struct {
	Count        int     `json:"count"`
	TotalSpent   float64 `json:"total_spent"`
	TotalIncome  float64 `json:"total_income"`
	AverageSpent float64 `json:"average_spent"`
}

// SearchTransactions aggregates transactions matching the query.
func (s *Store) SearchTransactions(ctx context.Context, userID string, q TransactionQuery) (*TransactionAggregate, error) {
	query := `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0)
		FROM transactions WHERE user_id = ? AND posted_at >= ? AND posted_at <= ?`
	args := []any{userID, dateArg(q.From), dateArgUpper(q.To)}
	if q.Category != "" {
		query += ` AND category = ?`
		args = append(args, q.Category)
	}
	if q.Merchant != "" {
		query += ` AND merchant LIKE ?`
		args = append(args, "%"+q.Merchant+"%")
	}

	var agg TransactionAggregate
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&agg.Count, &agg.TotalSpent, &agg.TotalIncome); err != nil {
		return nil, fmt.Errorf("aggregate transactions: %w", err)
	}
	if agg.Count > 0 {
		agg.AverageSpent = agg.TotalSpent / float64(agg.Count)
	}
	return &agg, nil
}

// AccountBalance is the latest snapshot balance of one account.
type AccountBalance struct {
	Account     string  `json:"account"`
	Type        string  `json:"type"`
	Institution string  `json:"institution,omitempty"`
	Balance     float64 `json:"balance"`
}

// Balances returns the current balance of each account plus the total.
func (s *Store) Balances(ctx context.Context, userID string) ([]AccountBalance, float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.name, a.type, COALESCE(a.institution, ''), b.balance
		FROM accounts a
		JOIN balance_snapshots b ON b.account_id = a.id
		WHERE a.user_id = ?
		  AND b.taken_at = (SELECT MAX(taken_at) FROM balance_snapshots WHERE account_id = a.id)
		ORDER BY a.name`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	var balances []AccountBalance
	var total float64
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Account, &b.Type, &b.Institution, &b.Balance); err != nil {
			return nil, 0, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
		total += b.Balance
	}
	return balances, total, rows.Err()
}

// CategoryTotal is one category's aggregate over a period.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// SpendingByCategory breaks down outgoing spend per category.
func (s *Store) SpendingByCategory(ctx context.Context, userID string, from, to time.Time) ([]CategoryTotal, error) {
	return s.categoryTotals(ctx, userID, from, to, true)
}

// IncomeBreakdown breaks down incoming amounts per category.
func (s *Store) IncomeBreakdown(ctx context.Context, userID string, from, to time.Time) ([]CategoryTotal, error) {
	return s.categoryTotals(ctx, userID, from, to, false)
}

func (s *Store) categoryTotals(ctx context.Context, userID string, from, to time.Time, spending bool) ([]CategoryTotal, error) {
	cond, sign := "amount < 0", "-amount"
	if !spending {
		cond, sign = "amount > 0", "amount"
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT category, COALESCE(SUM(%s), 0), COUNT(*)
		FROM transactions
		WHERE user_id = ? AND posted_at >= ? AND posted_at <= ? AND %s
		GROUP BY category ORDER BY 2 DESC`, sign, cond),
		userID, dateArg(from), dateArgUpper(to))
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// NetWorthPoint is the summed balance across accounts at month end.
type NetWorthPoint struct {
	Month    string  `json:"month"` // YYYY-MM
	NetWorth float64 `json:"net_worth"`
}

// NetWorthHistory returns one point per month over the trailing window.
func (s *Store) NetWorthHistory(ctx context.Context, userID string, months int) ([]NetWorthPoint, error) {
	if months <= 0 {
		months = 12
	}
	since := time.Now().UTC().AddDate(0, -months, 0)
	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', taken_at) AS month, SUM(balance)
		FROM balance_snapshots b
		WHERE b.user_id = ? AND b.taken_at >= ?
		  AND b.taken_at = (
			SELECT MAX(taken_at) FROM balance_snapshots
			WHERE account_id = b.account_id
			  AND strftime('%Y-%m', taken_at) = strftime('%Y-%m', b.taken_at)
		  )
		GROUP BY month ORDER BY month`, userID, dateArg(since))
	if err != nil {
		return nil, fmt.Errorf("query net worth history: %w", err)
	}
	defer rows.Close()

	var points []NetWorthPoint
	for rows.Next() {
		var p NetWorthPoint
		if err := rows.Scan(&p.Month, &p.NetWorth); err != nil {
			return nil, fmt.Errorf("scan net worth point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// PeriodComparison compares aggregates of two periods.
type PeriodComparison struct {
	First       TransactionAggregate `json:"first"`
	Second      TransactionAggregate `json:"second"`
	SpentDelta  float64              `json:"spent_delta"`
	IncomeDelta float64              `json:"income_delta"`
}

// ComparePeriods aggregates two date ranges and reports the deltas
// (second minus first).
func (s *Store) ComparePeriods(ctx context.Context, userID string, firstFrom, firstTo, secondFrom, secondTo time.Time) (*PeriodComparison, error) {
	first, err := s.SearchTransactions(ctx, userID, TransactionQuery{From: firstFrom, To: firstTo})
	if err != nil {
		return nil, err
	}
	second, err := s.SearchTransactions(ctx, userID, TransactionQuery{From: secondFrom, To: secondTo})
	if err != nil {
		return nil, err
	}
	return &PeriodComparison{
		First:       *first,
		Second:      *second,
		SpentDelta:  second.TotalSpent - first.TotalSpent,
		IncomeDelta: second.TotalIncome - first.TotalIncome,
	}, nil
}

// ContextSummary describes the user's accounts for the system prompt.
type ContextSummary struct {
	AccountCount int
	AccountTypes []string
	NetWorth     float64
	OldestTx     string // YYYY-MM-DD, empty when no data
	NewestTx     string
}

// Summary returns a compact description of the user's data footprint.
func (s *Store) Summary(ctx context.Context, userID string) (*ContextSummary, error) {
	sum := &ContextSummary{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT type FROM accounts WHERE user_id = ? ORDER BY type`, userID)
	if err != nil {
		return nil, fmt.Errorf("query account types: %w", err)
	}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan account type: %w", err)
		}
		sum.AccountTypes = append(sum.AccountTypes, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE user_id = ?`, userID).Scan(&sum.AccountCount); err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}

	_, total, err := s.Balances(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum.NetWorth = total

	var oldest, newest sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT MIN(posted_at), MAX(posted_at) FROM transactions WHERE user_id = ?`,
		userID).Scan(&oldest, &newest); err != nil {
		return nil, fmt.Errorf("query transaction range: %w", err)
	}
	sum.OldestTx = trimDate(oldest.String)
	sum.NewestTx = trimDate(newest.String)
	return sum, nil
}

func dateArg(t time.Time) string {
	if t.IsZero() {
		return "0001-01-01"
	}
	return t.Format("2006-01-02")
}

func dateArgUpper(t time.Time) string {
	if t.IsZero() {
		return "9999-12-31"
	}
	return t.Format("2006-01-02")
}

func trimDate(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}
