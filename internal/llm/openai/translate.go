package openai

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/llm"
)

// toChatMessages translates the shared conversation into chat-completions
// shape. The system prompt travels as a leading system message; tool
// results use the dedicated "tool" role keyed by tool_call_id.
func toChatMessages(systemPrompt string, messages []llm.Message) []messageParam {
	out := make([]messageParam, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, messageParam{Role: "system", Content: systemPrompt})
	}
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleAssistant:
			mp := messageParam{Role: "assistant", Content: msg.Content}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Input)
				if err != nil {
					args = []byte("{}")
				}
				mp.ToolCalls = append(mp.ToolCalls, wireToolCall{
					ID:       call.ID,
					Type:     "function",
					Function: functionCall{Name: call.Name, Arguments: string(args)},
				})
			}
			out = append(out, mp)
		case llm.RoleTool:
			out = append(out, messageParam{
				Role:       "tool",
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
				Name:       msg.ToolName,
			})
		default:
			out = append(out, messageParam{Role: string(msg.Role), Content: msg.Content})
		}
	}
	return out
}

// fromWireToolCalls decodes native tool calls back into the shared shape,
// synthesizing ids for servers that omit them so the loop can still
// correlate calls to results.
func fromWireToolCalls(calls []wireToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, 0, len(calls))
	for _, call := range calls {
		input := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				input = map[string]any{"raw": call.Function.Arguments}
			}
		}
		id := call.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		out = append(out, llm.ToolCall{ID: id, Name: call.Function.Name, Input: input})
	}
	return out
}

// mapFinishReason normalizes the chat-completions finish_reason values.
func mapFinishReason(reason string) llm.StopReason {
	switch reason {
	case "tool_calls", "function_call":
		return llm.StopToolUse
	case "length":
		return llm.StopMaxTokens
	default:
		return llm.StopEndTurn
	}
}

func toToolParams(tools []llm.ToolDefinition) []toolParam {
	out := make([]toolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolParam{
			Type: "function",
			Function: functionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}
