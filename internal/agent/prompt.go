package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finsight/finsight/internal/finance"
)

// ContextBuilder produces the system prompt for one run from the user's
// financial context.
type ContextBuilder interface {
	SystemPrompt(ctx context.Context, userID string) (string, error)
}

// FinanceContextBuilder builds the prompt from the financial store.
type FinanceContextBuilder struct {
	store *finance.Store
}

// NewFinanceContextBuilder creates a ContextBuilder over the store.
func NewFinanceContextBuilder(store *finance.Store) *FinanceContextBuilder {
	return &FinanceContextBuilder{store: store}
}

// SystemPrompt describes the user's data footprint and the ground rules
// for answering. Tool summaries already exclude line items; the prompt
// reinforces that the answer must stay at the aggregate level.
func (b *FinanceContextBuilder) SystemPrompt(ctx context.Context, userID string) (string, error) {
	sum, err := b.store.Summary(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("build financial context: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are a personal finance assistant. Answer questions about the user's accounts and transactions using the available tools.\n\n")
	sb.WriteString(fmt.Sprintf("Today's date is %s.\n", time.Now().UTC().Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("The user has %d accounts", sum.AccountCount))
	if len(sum.AccountTypes) > 0 {
		sb.WriteString(" (" + strings.Join(sum.AccountTypes, ", ") + ")")
	}
	sb.WriteString(fmt.Sprintf(" with a combined balance of %.2f.\n", sum.NetWorth))
	if sum.OldestTx != "" {
		sb.WriteString(fmt.Sprintf("Transaction data covers %s to %s.\n", sum.OldestTx, sum.NewestTx))
	}
	sb.WriteString("\nRules:\n")
	sb.WriteString("- Always fetch data with tools before answering; never invent numbers.\n")
	sb.WriteString("- Report aggregates and totals, not individual transactions.\n")
	sb.WriteString("- When the question names a period, pass exact start and end dates to the tools.\n")
	sb.WriteString("- Answer concisely in plain language.\n")
	return sb.String(), nil
}
