// Package tools defines the fixed catalog of financial-query tools and
// the executor that dispatches model tool calls to them.
package tools

import "github.com/finsight/finsight/internal/llm"

// CatalogVersion identifies the deployed tool set. Bump when a tool is
// added or a schema changes.
const CatalogVersion = "1"

// Tool names in the fixed catalog.
const (
	ToolQueryTransactions  = "query_transactions"
	ToolGetBalances        = "get_balances"
	ToolSpendingByCategory = "spending_by_category"
	ToolIncomeBreakdown    = "income_breakdown"
	ToolNetWorthHistory    = "net_worth_history"
	ToolComparePeriods     = "compare_periods"
)

func dateProp(desc string) map[string]any {
	return map[string]any{"type": "string", "format": "date", "description": desc}
}

// Catalog returns the fixed, versioned tool list shared by every
// deployment. All tools are read-only; their summaries carry aggregates
// only, never individual line items.
func Catalog() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolQueryTransactions,
			Description: "Aggregate transactions in a date range, optionally filtered by category or merchant. Returns counts and totals only.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_date": dateProp("Start of the range, YYYY-MM-DD."),
					"end_date":   dateProp("End of the range, YYYY-MM-DD."),
					"category":   map[string]any{"type": "string", "description": "Optional category filter, e.g. groceries."},
					"merchant":   map[string]any{"type": "string", "description": "Optional merchant name filter."},
				},
				"required": []string{"start_date", "end_date"},
			},
		},
		{
			Name:        ToolGetBalances,
			Description: "Current balance of every account plus the total.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        ToolSpendingByCategory,
			Description: "Spending broken down by category over a date range.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_date": dateProp("Start of the range, YYYY-MM-DD."),
					"end_date":   dateProp("End of the range, YYYY-MM-DD."),
				},
				"required": []string{"start_date", "end_date"},
			},
		},
		{
			Name:        ToolIncomeBreakdown,
			Description: "Income broken down by source category over a date range.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_date": dateProp("Start of the range, YYYY-MM-DD."),
					"end_date":   dateProp("End of the range, YYYY-MM-DD."),
				},
				"required": []string{"start_date", "end_date"},
			},
		},
		{
			Name:        ToolNetWorthHistory,
			Description: "Historical net worth, one point per month.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"months": map[string]any{"type": "integer", "description": "Trailing window in months, default 12."},
				},
			},
		},
		{
			Name:        ToolComparePeriods,
			Description: "Compare spending and income between two date ranges.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"first_start":  dateProp("Start of the first period."),
					"first_end":    dateProp("End of the first period."),
					"second_start": dateProp("Start of the second period."),
					"second_end":   dateProp("End of the second period."),
				},
				"required": []string{"first_start", "first_end", "second_start", "second_end"},
			},
		},
	}
}
