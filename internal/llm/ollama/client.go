// Package ollama adapts a self-hosted Ollama server to the shared
// protocol. Ollama streams line-delimited JSON rather than SSE and has
// its own function-calling envelope.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/llm"
)

var _ llm.Provider = (*Client)(nil)

// Client handles communication with the Ollama API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string        // e.g. "http://localhost:11434"
	Model   string        // e.g. "qwen2.5:7b"
	Timeout time.Duration // request timeout; cold CPU inference is slow
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:11434",
		Model:   "qwen2.5:7b",
		Timeout: 5 * time.Minute,
	}
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true, ToolUse: true}
}

// chatMessage is Ollama's native message shape.
type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type toolParam struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

// chatRequest is the request body for the /api/chat endpoint.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Tools    []toolParam   `json:"tools,omitempty"`
	Format   string        `json:"format,omitempty"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// chatResponse is one response object from /api/chat. When streaming,
// one such object arrives per line until done=true.
type chatResponse struct {
	Model      string      `json:"model"`
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

// Complete performs a blocking no-tool completion.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	chatResp, err := c.doChat(ctx, c.buildRequest(req, nil, false))
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{
		Content:  chatResp.Message.Content,
		Usage:    llm.Usage{InputTokens: chatResp.PromptEvalCount, OutputTokens: chatResp.EvalCount},
		Model:    c.model,
		Provider: c.Name(),
	}, nil
}

// CompleteWithTools performs a tool-enabled completion. Ollama never
// assigns tool-call ids, so the adapter synthesizes them.
func (c *Client) CompleteWithTools(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDefinition) (*llm.ToolCompletionResponse, error) {
	chatResp, err := c.doChat(ctx, c.buildRequest(req, tools, false))
	if err != nil {
		return nil, err
	}

	var calls []llm.ToolCall
	for _, wc := range chatResp.Message.ToolCalls {
		input := wc.Function.Arguments
		if input == nil {
			input = map[string]any{}
		}
		calls = append(calls, llm.ToolCall{
			ID:    "call_" + uuid.NewString(),
			Name:  wc.Function.Name,
			Input: input,
		})
	}

	stop := llm.StopEndTurn
	if len(calls) > 0 {
		stop = llm.StopToolUse
	} else if chatResp.DoneReason == "length" {
		stop = llm.StopMaxTokens
	}

	return &llm.ToolCompletionResponse{
		Content:    chatResp.Message.Content,
		ToolCalls:  calls,
		Usage:      llm.Usage{InputTokens: chatResp.PromptEvalCount, OutputTokens: chatResp.EvalCount},
		Model:      c.model,
		Provider:   c.Name(),
		StopReason: stop,
	}, nil
}

// Stream performs a streaming completion over Ollama's NDJSON transport.
func (c *Client) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	resp, err := c.doRequest(ctx, c.buildRequest(req, nil, true))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.readAPIError(resp)
	}

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				out <- llm.StreamChunk{Err: ctx.Err(), Done: true}
				return
			default:
			}
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				out <- llm.StreamChunk{Err: fmt.Errorf("decode ollama chunk: %w", err), Done: true}
				return
			}
			if chunk.Message.Content != "" {
				out <- llm.StreamChunk{Content: chunk.Message.Content}
			}
			if chunk.Done {
				out <- llm.StreamChunk{Done: true}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			out <- llm.StreamChunk{Err: err, Done: true}
			return
		}
		out <- llm.StreamChunk{Done: true}
	}()
	return out, nil
}

// IsAvailable checks whether the Ollama server is reachable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the models available on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, len(result.Models))
	for i, m := range result.Models {
		names[i] = m.Name
	}
	return names, nil
}

func (c *Client) buildRequest(req llm.CompletionRequest, tools []llm.ToolDefinition, stream bool) chatRequest {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleAssistant:
			cm := chatMessage{Role: "assistant", Content: msg.Content}
			for _, call := range msg.ToolCalls {
				var wc wireToolCall
				wc.Function.Name = call.Name
				wc.Function.Arguments = call.Input
				cm.ToolCalls = append(cm.ToolCalls, wc)
			}
			messages = append(messages, cm)
		case llm.RoleTool:
			messages = append(messages, chatMessage{Role: "tool", Content: msg.Content})
		default:
			messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
		}
	}

	out := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   stream,
	}
	if req.ResponseFormat == "json" {
		out.Format = "json"
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		opts := &chatOptions{NumPredict: req.MaxTokens}
		if req.Temperature != nil {
			opts.Temperature = *req.Temperature
		}
		out.Options = opts
	}
	for _, t := range tools {
		var tp toolParam
		tp.Type = "function"
		tp.Function.Name = t.Name
		tp.Function.Description = t.Description
		tp.Function.Parameters = t.InputSchema
		out.Tools = append(out.Tools, tp)
	}
	return out
}

func (c *Client) doChat(ctx context.Context, payload chatRequest) (*chatResponse, error) {
	resp, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.readAPIError(resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	return &chatResp, nil
}

func (c *Client) doRequest(ctx context.Context, payload chatRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.ProviderError{Provider: c.Name(), Message: err.Error()}
	}
	return resp, nil
}

func (c *Client) readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &llm.ProviderError{
		Provider:   c.Name(),
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// ModelInfo returns a human-readable description of the configured model.
func (c *Client) ModelInfo() string {
	return fmt.Sprintf("%s @ %s", c.model, c.baseURL)
}
