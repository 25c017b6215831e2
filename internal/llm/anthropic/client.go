// Package anthropic adapts the Anthropic Messages API to the shared
// completion protocol, including native tool use and SSE streaming.
package anthropic

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

// Client talks to the Anthropic Messages API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string        // optional, defaults to the hosted API
	Timeout time.Duration // optional, defaults to 60s
}

// NewClient creates a new Anthropic client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true, ToolUse: true}
}

// Complete performs a blocking no-tool completion.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	payload := c.buildPayload(req, nil, false)
	msgResp, err := c.doMessages(ctx, payload)
	if err != nil {
		return nil, err
	}
	content, _ := fromResponse(*msgResp)
	return &llm.CompletionResponse{
		Content:  content,
		Usage:    llm.Usage{InputTokens: msgResp.Usage.InputTokens, OutputTokens: msgResp.Usage.OutputTokens},
		Model:    msgResp.Model,
		Provider: c.Name(),
	}, nil
}

// CompleteWithTools performs a tool-enabled completion.
func (c *Client) CompleteWithTools(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDefinition) (*llm.ToolCompletionResponse, error) {
	payload := c.buildPayload(req, toToolParams(tools), false)
	msgResp, err := c.doMessages(ctx, payload)
	if err != nil {
		return nil, err
	}
	content, calls := fromResponse(*msgResp)
	stop := mapStopReason(msgResp.StopReason)
	if len(calls) == 0 && stop == llm.StopToolUse {
		stop = llm.StopEndTurn
	}
	return &llm.ToolCompletionResponse{
		Content:    content,
		ToolCalls:  calls,
		Usage:      llm.Usage{InputTokens: msgResp.Usage.InputTokens, OutputTokens: msgResp.Usage.OutputTokens},
		Model:      msgResp.Model,
		Provider:   c.Name(),
		StopReason: stop,
	}, nil
}

// Stream performs an SSE streaming completion, relaying text deltas as
// they arrive from the vendor transport.
func (c *Client) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	payload := c.buildPayload(req, nil, true)
	resp, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		err := consumeSSE(ctx, resp.Body, func(_ string, data string) error {
			data = strings.TrimSpace(data)
			if data == "" {
				return nil
			}
			var envelope streamEnvelope
			if err := json.Unmarshal([]byte(data), &envelope); err != nil {
				return fmt.Errorf("decode anthropic stream envelope: %w", err)
			}
			switch envelope.Type {
			case "content_block_delta":
				var delta contentBlockDeltaEvent
				if err := json.Unmarshal([]byte(data), &delta); err != nil {
					return fmt.Errorf("decode anthropic delta: %w", err)
				}
				if delta.Delta.Text == "" {
					return nil
				}
				select {
				case out <- llm.StreamChunk{Content: delta.Delta.Text}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil {
			out <- llm.StreamChunk{Err: err, Done: true}
			return
		}
		out <- llm.StreamChunk{Done: true}
	}()
	return out, nil
}

// IsAvailable probes the API with a minimal request and a short timeout.
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload := messageRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages: []messageParam{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: "ping"}}},
		},
	}
	resp, err := c.doRequest(ctx, payload)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < http.StatusMultipleChoices
}

func (c *Client) buildPayload(req llm.CompletionRequest, tools []toolParam, stream bool) messageRequest {
	payload := messageRequest{
		Model:     c.model,
		Messages:  toMessageParams(req.Messages),
		System:    req.SystemPrompt,
		MaxTokens: req.MaxTokens,
		Tools:     tools,
		Stream:    stream,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = defaultMaxTokens
	}
	if req.Temperature != nil {
		payload.Temperature = req.Temperature
	}
	return payload
}

func (c *Client) doMessages(ctx context.Context, payload messageRequest) (*messageResponse, error) {
	resp, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, readAPIError(resp)
	}

	var msgResp messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	return &msgResp, nil
}

func (c *Client) doRequest(ctx context.Context, payload messageRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.ProviderError{Provider: c.Name(), Message: err.Error()}
	}
	return resp, nil
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic api status %d: %w", resp.StatusCode, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &llm.ProviderError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &llm.ProviderError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}
	return &llm.ProviderError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: string(body)}
}

// consumeSSE parses a Server-Sent Events stream, invoking fn once per event.
func consumeSSE(ctx context.Context, r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var eventName string
	var dataBuf strings.Builder
	flush := func() error {
		if dataBuf.Len() == 0 {
			eventName = ""
			return nil
		}
		payload := dataBuf.String()
		dataBuf.Reset()
		return fn(eventName, payload)
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			eventName = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(line[6:])
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimSpace(line[5:]))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}
