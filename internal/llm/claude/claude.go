package claude

import (
	"bytes"
	"context"
	"encoding/json"
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

const anthropicVersion = "2023-06-01"

// Client implements the Completer interface against the Anthropic messages
// API.
type Client struct {
	cfg        *store.Config
	endpoint   string
	limiter    *api.RateLimiter
	httpClient *http.Client
}

// NewClient creates a messages-API client. limiter may be nil. A proxy or
// gateway endpoint can be set via CLAUDE_API_ENDPOINT.
func NewClient(cfg *store.Config, limiter *api.RateLimiter) *Client {
	endpoint := "https://api.anthropic.com/v1/messages"
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		limiter:    limiter,
		httpClient: &http.Client{},
	}
}

// Complete performs a single messages call and returns the assistant text.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-messages-call")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return "", faults.New(faults.KindModelInvocation, "CLAUDE_API_KEY missing")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", faults.Wrap(faults.KindModelInvocation, err, "rate limiter wait aborted")
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.LLM.MaxTokens
	}
	body := map[string]any{
		"model":  c.cfg.LLM.Model,
		"system": req.System,
		"messages": []map[string]string{
			{"role": "user", "content": req.User},
		},
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}

	bb, err := json.Marshal(body)
	if err != nil {
		return "", faults.Wrap(faults.KindModelInvocation, err, "failed to marshal messages request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bb))
	if err != nil {
		return "", faults.Wrap(faults.KindModelInvocation, err, "failed to build messages request")
	}
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", faults.Wrap(faults.KindModelInvocation, err, "messages request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", faults.Wrap(faults.KindModelInvocation, err, "failed to read messages response")
	}
	if resp.StatusCode >= 300 {
		return "", faults.New(faults.KindModelInvocation, "messages http %d: %s", resp.StatusCode, string(respBody))
	}

	text := gjson.GetBytes(respBody, "content.0.text")
	if !text.Exists() {
		return "", faults.New(faults.KindModelInvocation, "messages response missing content text")
	}
	return strings.TrimSpace(text.String()), nil
}
