package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finsight/finsight/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Model: "qwen2.5:7b"})
}

func TestCompleteWithToolsSynthesizesIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("blocking completion must not request streaming")
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "get_balances" {
			t.Errorf("tools not forwarded: %+v", req.Tools)
		}

		w.Write([]byte(`{
			"model": "qwen2.5:7b",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [
					{"function": {"name": "get_balances", "arguments": {}}},
					{"function": {"name": "query_transactions", "arguments": {"category": "groceries"}}}
				]
			},
			"done": true,
			"prompt_eval_count": 20,
			"eval_count": 8
		}`))
	})

	resp, err := client.CompleteWithTools(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "groceries?"}},
	}, []llm.ToolDefinition{{Name: "get_balances", InputSchema: map[string]any{"type": "object"}}})
	if err != nil {
		t.Fatalf("CompleteWithTools: %v", err)
	}

	if len(resp.ToolCalls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(resp.ToolCalls))
	}
	for i, call := range resp.ToolCalls {
		if !strings.HasPrefix(call.ID, "call_") || len(call.ID) <= len("call_") {
			t.Errorf("call %d: id not synthesized: %q", i, call.ID)
		}
	}
	if resp.ToolCalls[0].ID == resp.ToolCalls[1].ID {
		t.Error("synthesized ids must be unique")
	}
	if resp.ToolCalls[1].Input["category"] != "groceries" {
		t.Errorf("arguments not preserved: %+v", resp.ToolCalls[1].Input)
	}
	if resp.StopReason != llm.StopToolUse {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 20 || resp.Usage.OutputTokens != 8 {
		t.Errorf("usage not mapped: %+v", resp.Usage)
	}
}

func TestCompleteWithToolsDoneReasonLength(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"model": "qwen2.5:7b",
			"message": {"role": "assistant", "content": "truncated answ"},
			"done": true,
			"done_reason": "length"
		}`))
	})

	resp, err := client.CompleteWithTools(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	}, nil)
	if err != nil {
		t.Fatalf("CompleteWithTools: %v", err)
	}
	if resp.StopReason != llm.StopMaxTokens {
		t.Errorf("stop reason = %q, want max_tokens", resp.StopReason)
	}
}

func TestStreamNDJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("streaming completion must request streaming")
		}

		lines := []string{
			`{"model":"qwen2.5:7b","message":{"role":"assistant","content":"You spent"},"done":false}`,
			`{"model":"qwen2.5:7b","message":{"role":"assistant","content":" $120"},"done":false}`,
			`{"model":"qwen2.5:7b","message":{"role":"assistant","content":""},"done":true}`,
		}
		for _, line := range lines {
			w.Write([]byte(line + "\n"))
		}
	})

	chunks, err := client.Stream(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var text strings.Builder
	var done bool
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("chunk error: %v", chunk.Err)
		}
		if chunk.Done {
			done = true
			continue
		}
		text.WriteString(chunk.Content)
	}
	if !done {
		t.Error("stream never signalled done")
	}
	if text.String() != "You spent $120" {
		t.Errorf("streamed text = %q", text.String())
	}
}

func TestBuildRequestSystemAndTools(t *testing.T) {
	client := NewClient(DefaultConfig())
	req := client.buildRequest(llm.CompletionRequest{
		SystemPrompt: "assistant prompt",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "hi"},
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_balances", Input: map[string]any{}}}},
			{Role: llm.RoleTool, ToolCallID: "call_1", Content: `{"ok":true}`},
		},
	}, nil, false)

	if len(req.Messages) != 4 {
		t.Fatalf("expected system + 3 turns, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" {
		t.Errorf("system prompt not leading: %+v", req.Messages[0])
	}
	if req.Messages[3].Role != "tool" {
		t.Errorf("tool result role = %q", req.Messages[3].Role)
	}
}

func TestListModels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"qwen2.5:7b"},{"name":"llama3.2:3b"}]}`))
	})

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "qwen2.5:7b" {
		t.Errorf("unexpected models: %v", models)
	}
}

func TestIsAvailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	})
	if !client.IsAvailable(context.Background()) {
		t.Error("expected available")
	}

	down := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "m"})
	if down.IsAvailable(context.Background()) {
		t.Error("expected unavailable")
	}
}
