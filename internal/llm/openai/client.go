// Package openai adapts the Chat Completions API to the shared protocol.
// One adapter covers both the hosted vendor and OpenAI-compatible
// self-hosted servers; configurations differ only in base URL and model.
package openai

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

	"github.com/finsight/finsight/internal/llm"
)

var _ llm.Provider = (*Client)(nil)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	Name    string // provider kind label, defaults to "openai"
	APIKey  string
	Model   string
	BaseURL string        // optional, defaults to the hosted API
	Timeout time.Duration // optional, defaults to 60s
}

// NewClient creates a new chat-completions client.
func NewClient(cfg Config) *Client {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true, ToolUse: true}
}

// Complete performs a blocking no-tool completion.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	payload := c.buildPayload(req, nil, false)
	chatResp, err := c.doChat(ctx, payload)
	if err != nil {
		return nil, err
	}
	msg := chatResp.Choices[0].Message
	return &llm.CompletionResponse{
		Content:  msg.Content,
		Usage:    llm.Usage{InputTokens: chatResp.Usage.PromptTokens, OutputTokens: chatResp.Usage.CompletionTokens},
		Model:    c.modelName(chatResp.Model),
		Provider: c.name,
	}, nil
}

// CompleteWithTools performs a tool-enabled completion.
func (c *Client) CompleteWithTools(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDefinition) (*llm.ToolCompletionResponse, error) {
	payload := c.buildPayload(req, toToolParams(tools), false)
	payload.ToolChoice = "auto"
	chatResp, err := c.doChat(ctx, payload)
	if err != nil {
		return nil, err
	}
	choice := chatResp.Choices[0]
	calls := fromWireToolCalls(choice.Message.ToolCalls)
	stop := mapFinishReason(choice.FinishReason)
	// Some compatible servers report "stop" even when tool calls are
	// present; the calls themselves are authoritative.
	if len(calls) > 0 {
		stop = llm.StopToolUse
	} else if stop == llm.StopToolUse {
		stop = llm.StopEndTurn
	}
	return &llm.ToolCompletionResponse{
		Content:    choice.Message.Content,
		ToolCalls:  calls,
		Usage:      llm.Usage{InputTokens: chatResp.Usage.PromptTokens, OutputTokens: chatResp.Usage.CompletionTokens},
		Model:      c.modelName(chatResp.Model),
		Provider:   c.name,
		StopReason: stop,
	}, nil
}

// Stream performs an SSE streaming completion. Frames arrive as
// "data: <json>" lines terminated by a "[DONE]" sentinel.
func (c *Client) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	payload := c.buildPayload(req, nil, true)
	resp, err := c.doRequest(ctx, chatPath, payload)
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
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				out <- llm.StreamChunk{Done: true}
				return
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				out <- llm.StreamChunk{Err: fmt.Errorf("decode stream chunk: %w", err), Done: true}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				out <- llm.StreamChunk{Content: text}
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

// IsAvailable probes the models endpoint with a short timeout.
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelsPath, nil)
	if err != nil {
		return false
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) buildPayload(req llm.CompletionRequest, tools []toolParam, stream bool) chatRequest {
	payload := chatRequest{
		Model:       c.model,
		Messages:    toChatMessages(req.SystemPrompt, req.Messages),
		Tools:       tools,
		Stream:      stream,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.ResponseFormat == "json" {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return payload
}

func (c *Client) doChat(ctx context.Context, payload chatRequest) (*chatResponse, error) {
	resp, err := c.doRequest(ctx, chatPath, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.readAPIError(resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, &llm.ProviderError{Provider: c.name, Message: "empty choices in response"}
	}
	return &chatResp, nil
}

func (c *Client) doRequest(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.ProviderError{Provider: c.name, Message: err.Error()}
	}
	return resp, nil
}

func (c *Client) readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &llm.ProviderError{Provider: c.name, StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}
	return &llm.ProviderError{Provider: c.name, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

func (c *Client) modelName(fromResponse string) string {
	if fromResponse != "" {
		return fromResponse
	}
	return c.model
}
