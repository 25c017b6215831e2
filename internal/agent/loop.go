// Package agent implements the tool-use loop that turns a user question
// into a bounded sequence of provider calls and tool executions,
// surfaced as an ordered stream of events.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/llm"
	"github.com/finsight/finsight/internal/provider"
	"github.com/finsight/finsight/internal/tools"
	"github.com/finsight/finsight/internal/usage"
)

// maxRounds bounds the number of provider round-trips per run.
const maxRounds = 5

const exhaustedAnswer = "I'm sorry, I couldn't fully answer your question within the allowed number of analysis steps. " +
	"Here is what I gathered so far; try asking a more specific question."

// Executor is the seam to the concrete financial-query implementations.
type Executor interface {
	Execute(ctx context.Context, userID string, call llm.ToolCall) tools.Result
}

// Config wires a Loop.
type Config struct {
	Selector *provider.Selector
	Executor Executor
	Prompts  ContextBuilder
	Guard    *Guard
	Catalog  []llm.ToolDefinition
	Logger   *zap.Logger
}

// Loop orchestrates completion -> tool execution -> completion until the
// model produces a final answer or the round budget is exhausted.
// A Loop is stateless across runs; all run state lives on the stack of
// one Run invocation.
type Loop struct {
	selector *provider.Selector
	executor Executor
	prompts  ContextBuilder
	guard    *Guard
	catalog  []llm.ToolDefinition
	logger   *zap.Logger
}

// New creates a Loop.
func New(cfg Config) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Guard == nil {
		cfg.Guard = NewGuard()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = tools.Catalog()
	}
	return &Loop{
		selector: cfg.Selector,
		executor: cfg.Executor,
		prompts:  cfg.Prompts,
		guard:    cfg.Guard,
		catalog:  cfg.Catalog,
		logger:   cfg.Logger,
	}
}

// Run processes one question, producing the ordered, finite event
// sequence. The returned channel is closed after the terminal event.
// Iterations are strictly sequential; the only suspension points are
// the awaited provider and tool calls.
func (l *Loop) Run(ctx context.Context, userID, question string) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("agent loop panicked", zap.Any("panic", r))
				out <- Event{Type: EventError, Message: "an internal error occurred"}
			}
		}()
		l.run(ctx, userID, question, out)
	}()
	return out
}

func (l *Loop) run(ctx context.Context, userID, question string, out chan<- Event) {
	release, ok := l.guard.Acquire(userID)
	if !ok {
		out <- Event{Type: EventError, Message: ErrRunInProgress.Error()}
		return
	}
	defer release()

	out <- Event{Type: EventThinking}

	systemPrompt, err := l.prompts.SystemPrompt(ctx, userID)
	if err != nil {
		l.fail(ctx, userID, "", fmt.Errorf("build context: %w", err), out)
		return
	}

	adapter, cfg, err := l.selector.SelectForTools(ctx, userID)
	if err != nil {
		l.fail(ctx, userID, "", err, out)
		return
	}
	l.logger.Debug("selected tool-capable provider",
		zap.String("provider", adapter.Name()),
		zap.String("model", cfg.Model))

	conversation := []llm.Message{{Role: llm.RoleUser, Content: question}}
	var totals UsageTotals
	var sources []tools.Source

	for round := 0; round < maxRounds; round++ {
		resp, err := adapter.CompleteWithTools(ctx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			Messages:     conversation,
		}, l.catalog)
		if err != nil {
			l.fail(ctx, userID, adapter.Name(), err, out)
			return
		}
		totals.InputTokens += resp.Usage.InputTokens
		totals.OutputTokens += resp.Usage.OutputTokens

		if !resp.HasToolCalls() {
			l.finish(ctx, userID, adapter.Name(), resp.Model, resp.Content, sources, totals, out)
			return
		}

		// The assistant turn carrying the calls must precede its results.
		conversation = append(conversation, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Execute in the order returned by the provider; some vendors
		// require strict call/result pairing order.
		for _, call := range resp.ToolCalls {
			out <- Event{Type: EventToolStart, Name: call.Name}

			result := l.executor.Execute(ctx, userID, call)
			totals.ToolCalls++
			sources = appendSources(sources, result.Sources)

			payload, err := json.Marshal(result.Data)
			if err != nil {
				payload = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
			}
			conversation = append(conversation, llm.Message{
				Role:       llm.RoleTool,
				Content:    string(payload),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})

			out <- Event{Type: EventToolResult, Name: call.Name, Summary: result.Summary}
		}
	}

	// Budget exhausted while the model still wants tools: degraded but
	// successful completion, with sources and usage intact.
	l.logger.Warn("agent loop exhausted round budget",
		zap.String("user_id", userID),
		zap.Int("rounds", maxRounds))
	l.finish(ctx, userID, adapter.Name(), cfg.Model, exhaustedAnswer, sources, totals, out)
}

func (l *Loop) finish(ctx context.Context, userID, providerName, model, answer string, sources []tools.Source, totals UsageTotals, out chan<- Event) {
	l.selector.Record(ctx, usage.Entry{
		UserID:       userID,
		Provider:     providerName,
		Model:        model,
		Kind:         "agent",
		InputTokens:  totals.InputTokens,
		OutputTokens: totals.OutputTokens,
		ToolCalls:    totals.ToolCalls,
		Success:      true,
	})

	out <- Event{Type: EventContent, Text: answer}
	if len(sources) > 0 {
		out <- Event{Type: EventSources, Sources: sources}
	}
	out <- Event{Type: EventDone, Usage: &totals}
}

func (l *Loop) fail(ctx context.Context, userID, providerName string, err error, out chan<- Event) {
	l.logger.Error("agent loop failed",
		zap.String("user_id", userID),
		zap.String("provider", providerName),
		zap.Error(err))
	if providerName != "" {
		l.selector.Record(ctx, usage.Entry{
			UserID:   userID,
			Provider: providerName,
			Kind:     "agent",
			Success:  false,
			Error:    err.Error(),
		})
	}
	out <- Event{Type: EventError, Message: publicMessage(err)}
}

// publicMessage keeps verbose vendor payloads out of the user-visible
// error while preserving actionable configuration hints.
func publicMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := err.Error()
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return msg
}

func appendSources(dst []tools.Source, add []tools.Source) []tools.Source {
	for _, s := range add {
		dup := false
		for _, existing := range dst {
			if existing.Type == s.Type && existing.Description == s.Description && existing.DateRange == s.DateRange {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, s)
		}
	}
	return dst
}
