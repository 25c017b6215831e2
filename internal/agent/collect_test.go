package agent

import (
	"strings"
	"testing"

	"github.com/finsight/finsight/internal/tools"
)

func feed(events ...Event) <-chan Event {
	ch := make(chan Event, len(events))
	for _, evt := range events {
		ch <- evt
	}
	close(ch)
	return ch
}

func TestCollectFoldsSequence(t *testing.T) {
	result, err := Collect(feed(
		Event{Type: EventThinking},
		Event{Type: EventToolStart, Name: "query_transactions"},
		Event{Type: EventToolResult, Name: "query_transactions", Summary: "3 transactions totalling 285.33."},
		Event{Type: EventContent, Text: "You spent 285.33 on groceries."},
		Event{Type: EventSources, Sources: []tools.Source{{Type: "transactions", Description: "Transaction records"}}},
		Event{Type: EventDone, Usage: &UsageTotals{InputTokens: 250, OutputTokens: 50, ToolCalls: 1}},
	))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if result.Answer != "You spent 285.33 on groceries." {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0].Name != "query_transactions" {
		t.Errorf("tools used = %+v", result.ToolsUsed)
	}
	if !strings.Contains(result.ToolsUsed[0].Summary, "285.33") {
		t.Errorf("tool summary = %q", result.ToolsUsed[0].Summary)
	}
	if len(result.Sources) != 1 {
		t.Errorf("sources = %+v", result.Sources)
	}
	if result.Usage.ToolCalls != 1 || result.Usage.InputTokens != 250 {
		t.Errorf("usage = %+v", result.Usage)
	}
}

func TestCollectErrorEventBecomesError(t *testing.T) {
	_, err := Collect(feed(
		Event{Type: EventThinking},
		Event{Type: EventError, Message: "no active AI providers configured"},
	))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no active AI providers") {
		t.Errorf("error = %v", err)
	}
}

func TestCollectEmptySequence(t *testing.T) {
	result, err := Collect(feed())
	if err != nil {
		t.Fatalf("Collect on empty sequence: %v", err)
	}
	if result.Answer != "" || len(result.ToolsUsed) != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}
