package openai

import (
	"strings"
	"testing"

	"github.com/finsight/finsight/internal/llm"
)

func TestToChatMessagesSystemPromptLeads(t *testing.T) {
	out := toChatMessages("you are a finance assistant", []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
	})

	if len(out) != 2 {
		t.Fatalf("expected system + user, got %d messages", len(out))
	}
	if out[0].Role != "system" || out[0].Content != "you are a finance assistant" {
		t.Errorf("system prompt not a leading system message: %+v", out[0])
	}
	if out[1].Role != "user" {
		t.Errorf("user message misplaced: %+v", out[1])
	}
}

func TestToChatMessagesToolRoundTrip(t *testing.T) {
	out := toChatMessages("", []llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "query_transactions", Input: map[string]any{"category": "groceries"}},
		}},
		{Role: llm.RoleTool, ToolCallID: "call_1", ToolName: "query_transactions", Content: `{"count":3}`},
	})

	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}

	asst := out[0]
	if len(asst.ToolCalls) != 1 {
		t.Fatalf("tool call not forwarded: %+v", asst)
	}
	wire := asst.ToolCalls[0]
	if wire.Type != "function" || wire.Function.Name != "query_transactions" {
		t.Errorf("unexpected wire call: %+v", wire)
	}
	// Arguments travel as a JSON string on this wire, not an object.
	if !strings.Contains(wire.Function.Arguments, `"category":"groceries"`) {
		t.Errorf("arguments not serialized: %q", wire.Function.Arguments)
	}

	result := out[1]
	if result.Role != "tool" || result.ToolCallID != "call_1" {
		t.Errorf("tool result not keyed by tool_call_id: %+v", result)
	}
}

func TestFromWireToolCallsSynthesizesIDs(t *testing.T) {
	calls := fromWireToolCalls([]wireToolCall{
		{Type: "function", Function: functionCall{Name: "get_balances", Arguments: "{}"}},
		{Type: "function", Function: functionCall{Name: "get_balances", Arguments: "{}"}},
	})

	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	for i, call := range calls {
		if !strings.HasPrefix(call.ID, "call_") || len(call.ID) <= len("call_") {
			t.Errorf("call %d: id not synthesized: %q", i, call.ID)
		}
	}
	if calls[0].ID == calls[1].ID {
		t.Error("synthesized ids must be unique")
	}
}

func TestFromWireToolCallsPreservesGivenID(t *testing.T) {
	calls := fromWireToolCalls([]wireToolCall{
		{ID: "call_abc", Type: "function", Function: functionCall{Name: "get_balances", Arguments: `{"x":1}`}},
	})
	if calls[0].ID != "call_abc" {
		t.Errorf("given id replaced: %q", calls[0].ID)
	}
	if calls[0].Input["x"] != float64(1) {
		t.Errorf("arguments not decoded: %+v", calls[0].Input)
	}
}

func TestFromWireToolCallsUnparseableArguments(t *testing.T) {
	calls := fromWireToolCalls([]wireToolCall{
		{ID: "call_1", Type: "function", Function: functionCall{Name: "query_transactions", Arguments: "not json"}},
	})
	if calls[0].Input["raw"] != "not json" {
		t.Errorf("unparseable arguments should be preserved under raw: %+v", calls[0].Input)
	}
}

func TestMapFinishReason(t *testing.T) {
	cases := []struct {
		in   string
		want llm.StopReason
	}{
		{"tool_calls", llm.StopToolUse},
		{"function_call", llm.StopToolUse},
		{"length", llm.StopMaxTokens},
		{"stop", llm.StopEndTurn},
		{"", llm.StopEndTurn},
	}
	for _, tc := range cases {
		if got := mapFinishReason(tc.in); got != tc.want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
