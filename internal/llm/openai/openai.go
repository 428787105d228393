package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"sec-rag-agent/internal/api"
	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

// Client speaks the OpenAI chat-completions protocol. A configurable base
// URL lets the same client serve any OpenAI-compatible provider (Groq,
// local gateways).
type Client struct {
	cfg        *store.Config
	baseURL    string
	limiter    *api.RateLimiter
	httpClient *http.Client
}

// NewClient creates a chat-completions client. limiter may be nil.
func NewClient(cfg *store.Config, limiter *api.RateLimiter) *Client {
	baseURL := "https://api.openai.com/v1"
	if cfg.LLM.BaseURL != "" {
		baseURL = cfg.LLM.BaseURL
	}
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		baseURL = ep
	}
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		// Request deadlines come from the caller's context, not a
		// client-wide timeout, so streaming responses are not cut off.
		httpClient: &http.Client{},
	}
}

// Complete performs a single chat call and returns the assistant text.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-chat-completion")
	defer span.End()

	resp, err := c.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", faults.Wrap(faults.KindModelInvocation, err, "failed to decode chat completion response")
	}
	if len(r.Choices) == 0 {
		return "", faults.New(faults.KindModelInvocation, "chat completion returned no choices")
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}

// CompleteStream performs a streaming chat call, invoking emit once per
// text delta.
func (c *Client) CompleteStream(ctx context.Context, req types.CompletionRequest, emit func(delta string) error) error {
	ctx, span := trace.StartSpan(ctx, "openai-chat-completion-stream")
	defer span.End()

	resp, err := c.send(ctx, req, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}
		delta := gjson.Get(payload, "choices.0.delta.content")
		if !delta.Exists() || delta.String() == "" {
			continue
		}
		if err := emit(delta.String()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return faults.Wrap(faults.KindModelInvocation, err, "chat completion stream interrupted")
	}
	return nil
}

func (c *Client) send(ctx context.Context, req types.CompletionRequest, stream bool) (*http.Response, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, faults.New(faults.KindModelInvocation, "OPENAI_API_KEY missing")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, faults.Wrap(faults.KindModelInvocation, err, "rate limiter wait aborted")
	}

	body := map[string]any{
		"model": c.cfg.LLM.Model,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.ForceJSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	if stream {
		body["stream"] = true
	}

	bb, err := json.Marshal(body)
	if err != nil {
		return nil, faults.Wrap(faults.KindModelInvocation, err, "failed to marshal chat completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bb))
	if err != nil {
		return nil, faults.Wrap(faults.KindModelInvocation, err, "failed to build chat completion request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, faults.Wrap(faults.KindModelInvocation, err, "chat completion request failed")
	}
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, faults.New(faults.KindModelInvocation, "chat completion http %d: %s", resp.StatusCode, truncate(string(respBody), 512))
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
