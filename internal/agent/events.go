package agent

import "github.com/finsight/finsight/internal/tools"

// EventType tags one entry of the loop's ordered event sequence.
type EventType string

const (
	EventThinking   EventType = "thinking"
	EventToolStart  EventType = "tool_start"
	EventToolResult EventType = "tool_result"
	EventContent    EventType = "content"
	EventSources    EventType = "sources"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one step of loop progress. Exactly one terminal event (done
// or error) is produced per run, always last.
type Event struct {
	Type    EventType      `json:"type"`
	Name    string         `json:"name,omitempty"`    // tool_start, tool_result
	Summary string         `json:"summary,omitempty"` // tool_result
	Text    string         `json:"text,omitempty"`    // content
	Sources []tools.Source `json:"sources,omitempty"` // sources
	Usage   *UsageTotals   `json:"usage,omitempty"`   // done
	Message string         `json:"message,omitempty"` // error
}

// Terminal reports whether this event ends the sequence.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// UsageTotals sums usage across all rounds actually executed.
type UsageTotals struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	ToolCalls    int `json:"toolCalls"`
}

// ToolUse pairs a tool name with the summary its execution produced.
type ToolUse struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Result is the synchronous fold of one event sequence.
type Result struct {
	Answer    string         `json:"answer"`
	ToolsUsed []ToolUse      `json:"toolsUsed"`
	Sources   []tools.Source `json:"sources"`
	Usage     UsageTotals    `json:"usage"`
}
