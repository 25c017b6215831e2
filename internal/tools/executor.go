package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/finance"
	"github.com/finsight/finsight/internal/llm"
)

// Source describes the provenance of a tool result.
type Source struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	DateRange   string `json:"dateRange,omitempty"`
}

// Result is what a tool execution produces. Data is opaque to the agent
// loop, which only re-serializes it into a tool message; Summary is the
// human-readable aggregate used in progress events.
type Result struct {
	Data    any      `json:"data"`
	Summary string   `json:"summary"`
	Sources []Source `json:"sources,omitempty"`
}

// Executor dispatches named tool calls to the financial store. Failures
// and unknown tool names become error payloads, never Go errors: the
// model reacts to them instead of the loop aborting.
type Executor struct {
	store  *finance.Store
	logger *zap.Logger
}

// NewExecutor creates an Executor over the given store.
func NewExecutor(store *finance.Store, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{store: store, logger: logger}
}

// Execute runs one tool call for the given user.
func (e *Executor) Execute(ctx context.Context, userID string, call llm.ToolCall) Result {
	start := time.Now()
	result := e.dispatch(ctx, userID, call)
	e.logger.Debug("tool executed",
		zap.String("tool", call.Name),
		zap.Duration("duration", time.Since(start)))
	return result
}

func (e *Executor) dispatch(ctx context.Context, userID string, call llm.ToolCall) Result {
	switch call.Name {
	case ToolQueryTransactions:
		return e.queryTransactions(ctx, userID, call.Input)
	case ToolGetBalances:
		return e.getBalances(ctx, userID)
	case ToolSpendingByCategory:
		return e.spendingByCategory(ctx, userID, call.Input)
	case ToolIncomeBreakdown:
		return e.incomeBreakdown(ctx, userID, call.Input)
	case ToolNetWorthHistory:
		return e.netWorthHistory(ctx, userID, call.Input)
	case ToolComparePeriods:
		return e.comparePeriods(ctx, userID, call.Input)
	default:
		return Result{
			Data:    map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)},
			Summary: fmt.Sprintf("The tool %q is unknown; it is not part of the available catalog.", call.Name),
		}
	}
}

func failure(name string, err error) Result {
	return Result{
		Data:    map[string]any{"error": err.Error()},
		Summary: fmt.Sprintf("The %s query failed and returned no data.", name),
	}
}

func (e *Executor) queryTransactions(ctx context.Context, userID string, input map[string]any) Result {
	from, to, err := dateRange(input, "start_date", "end_date")
	if err != nil {
		return failure(ToolQueryTransactions, err)
	}
	q := finance.TransactionQuery{
		From:     from,
		To:       to,
		Category: stringArg(input, "category"),
		Merchant: stringArg(input, "merchant"),
	}
	agg, err := e.store.SearchTransactions(ctx, userID, q)
	if err != nil {
		return failure(ToolQueryTransactions, err)
	}

	rangeDesc := fmt.Sprintf("%s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	summary := fmt.Sprintf("%d transactions between %s: %.2f spent, %.2f received.",
		agg.Count, rangeDesc, agg.TotalSpent, agg.TotalIncome)
	if q.Category != "" {
		summary = fmt.Sprintf("%d %s transactions between %s totalling %.2f spent.",
			agg.Count, q.Category, rangeDesc, agg.TotalSpent)
	}
	return Result{
		Data:    agg,
		Summary: summary,
		Sources: []Source{{Type: "transactions", Description: "Transaction records", DateRange: rangeDesc}},
	}
}

func (e *Executor) getBalances(ctx context.Context, userID string) Result {
	balances, total, err := e.store.Balances(ctx, userID)
	if err != nil {
		return failure(ToolGetBalances, err)
	}
	return Result{
		Data:    map[string]any{"accounts": balances, "total": total},
		Summary: fmt.Sprintf("%d accounts with a combined balance of %.2f.", len(balances), total),
		Sources: []Source{{Type: "balances", Description: "Latest account balance snapshots"}},
	}
}

func (e *Executor) spendingByCategory(ctx context.Context, userID string, input map[string]any) Result {
	from, to, err := dateRange(input, "start_date", "end_date")
	if err != nil {
		return failure(ToolSpendingByCategory, err)
	}
	totals, err := e.store.SpendingByCategory(ctx, userID, from, to)
	if err != nil {
		return failure(ToolSpendingByCategory, err)
	}
	rangeDesc := fmt.Sprintf("%s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var top string
	if len(totals) > 0 {
		top = fmt.Sprintf("; top category %s at %.2f", totals[0].Category, totals[0].Total)
	}
	return Result{
		Data:    map[string]any{"categories": totals},
		Summary: fmt.Sprintf("Spending across %d categories between %s%s.", len(totals), rangeDesc, top),
		Sources: []Source{{Type: "transactions", Description: "Categorized spending", DateRange: rangeDesc}},
	}
}

func (e *Executor) incomeBreakdown(ctx context.Context, userID string, input map[string]any) Result {
	from, to, err := dateRange(input, "start_date", "end_date")
	if err != nil {
		return failure(ToolIncomeBreakdown, err)
	}
	totals, err := e.store.IncomeBreakdown(ctx, userID, from, to)
	if err != nil {
		return failure(ToolIncomeBreakdown, err)
	}
	rangeDesc := fmt.Sprintf("%s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var sum float64
	for _, t := range totals {
		sum += t.Total
	}
	return Result{
		Data:    map[string]any{"sources": totals, "total": sum},
		Summary: fmt.Sprintf("Income of %.2f across %d sources between %s.", sum, len(totals), rangeDesc),
		Sources: []Source{{Type: "transactions", Description: "Income records", DateRange: rangeDesc}},
	}
}

func (e *Executor) netWorthHistory(ctx context.Context, userID string, input map[string]any) Result {
	months := intArg(input, "months", 12)
	points, err := e.store.NetWorthHistory(ctx, userID, months)
	if err != nil {
		return failure(ToolNetWorthHistory, err)
	}
	summary := fmt.Sprintf("Net worth history over the last %d months (%d data points).", months, len(points))
	if len(points) > 1 {
		delta := points[len(points)-1].NetWorth - points[0].NetWorth
		summary = fmt.Sprintf("Net worth changed by %.2f over the last %d months (%d data points).",
			delta, months, len(points))
	}
	return Result{
		Data:    map[string]any{"points": points},
		Summary: summary,
		Sources: []Source{{Type: "balances", Description: "Monthly balance snapshots"}},
	}
}

func (e *Executor) comparePeriods(ctx context.Context, userID string, input map[string]any) Result {
	firstFrom, firstTo, err := dateRange(input, "first_start", "first_end")
	if err != nil {
		return failure(ToolComparePeriods, err)
	}
	secondFrom, secondTo, err := dateRange(input, "second_start", "second_end")
	if err != nil {
		return failure(ToolComparePeriods, err)
	}
	cmp, err := e.store.ComparePeriods(ctx, userID, firstFrom, firstTo, secondFrom, secondTo)
	if err != nil {
		return failure(ToolComparePeriods, err)
	}
	rangeDesc := fmt.Sprintf("%s to %s vs %s to %s",
		firstFrom.Format("2006-01-02"), firstTo.Format("2006-01-02"),
		secondFrom.Format("2006-01-02"), secondTo.Format("2006-01-02"))
	return Result{
		Data:    cmp,
		Summary: fmt.Sprintf("Spending changed by %.2f and income by %.2f between the periods.", cmp.SpentDelta, cmp.IncomeDelta),
		Sources: []Source{{Type: "transactions", Description: "Period comparison", DateRange: rangeDesc}},
	}
}

func stringArg(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

func intArg(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func dateRange(input map[string]any, fromKey, toKey string) (time.Time, time.Time, error) {
	from, err := parseDate(stringArg(input, fromKey), fromKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(stringArg(input, toKey), toKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func parseDate(s, key string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing required parameter %q", key)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q for %q, expected YYYY-MM-DD", s, key)
	}
	return t, nil
}
