package anthropic

import (
	"strings"

	"github.com/finsight/finsight/internal/llm"
)

// toMessageParams translates the shared conversation into Anthropic's
// native shape. Tool results have no dedicated role in the Messages API;
// they are delivered as tool_result blocks inside a user turn, and
// consecutive results are grouped into one such turn rather than one
// turn per result.
func toMessageParams(messages []llm.Message) []messageParam {
	out := make([]messageParam, 0, len(messages))
	var pendingResults []contentBlock

	flushResults := func() {
		if len(pendingResults) == 0 {
			return
		}
		out = append(out, messageParam{Role: "user", Content: pendingResults})
		pendingResults = nil
	}

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleTool:
			pendingResults = append(pendingResults, contentBlock{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Content,
			})
		case llm.RoleAssistant:
			flushResults()
			blocks := make([]contentBlock, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Input,
				})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, contentBlock{Type: "text", Text: ""})
			}
			out = append(out, messageParam{Role: "assistant", Content: blocks})
		default:
			flushResults()
			out = append(out, messageParam{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}
	flushResults()

	if len(out) == 0 {
		out = append(out, messageParam{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: ""}},
		})
	}
	return out
}

// fromResponse translates a native response back into the shared shape.
func fromResponse(resp messageResponse) (string, []llm.ToolCall) {
	var text strings.Builder
	var calls []llm.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			calls = append(calls, llm.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	return text.String(), calls
}

// mapStopReason normalizes Anthropic's stop_reason values.
func mapStopReason(reason string) llm.StopReason {
	switch reason {
	case "tool_use":
		return llm.StopToolUse
	case "max_tokens":
		return llm.StopMaxTokens
	default:
		return llm.StopEndTurn
	}
}

func toToolParams(tools []llm.ToolDefinition) []toolParam {
	out := make([]toolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolParam{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return out
}
