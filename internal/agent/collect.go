package agent

import (
	"errors"

	"github.com/finsight/finsight/internal/tools"
)

// Collect buffers an event sequence and folds it into one aggregate
// Result. An error event anywhere in the sequence becomes a returned
// error instead of a normal result. Both consumers of the loop, the
// streaming handler and this fold, read the same sequence; only the
// consumption differs.
func Collect(events <-chan Event) (*Result, error) {
	result := &Result{
		ToolsUsed: []ToolUse{},
		Sources:   []tools.Source{},
	}
	var runErr error

	for evt := range events {
		switch evt.Type {
		case EventContent:
			result.Answer = evt.Text
		case EventToolResult:
			result.ToolsUsed = append(result.ToolsUsed, ToolUse{Name: evt.Name, Summary: evt.Summary})
		case EventSources:
			result.Sources = append(result.Sources, evt.Sources...)
		case EventDone:
			if evt.Usage != nil {
				result.Usage = *evt.Usage
			}
		case EventError:
			runErr = errors.New(evt.Message)
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}
