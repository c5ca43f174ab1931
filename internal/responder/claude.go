package responder

import (
	"context"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

// Claude calls the Anthropic Messages API.
type Claude struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewClaude(opts BackendOptions) *Claude {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Claude{
		baseURL:     orDefault(opts.BaseURL, "https://api.anthropic.com"),
		model:       orDefault(opts.Model, "claude-3-5-haiku-latest"),
		apiKey:      opts.APIKey,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
		client:      opts.Client,
	}
}

func (c *Claude) Name() string { return "claude" }

type claudeRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	System      string  `json:"system,omitempty"`
	Messages    []Turn  `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Claude) Complete(ctx context.Context, p Prompt) (string, error) {
	if err := requireKey(c.Name(), c.apiKey); err != nil {
		return "", err
	}
	// The system prompt is a top-level field here, not a message.
	req := claudeRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      p.System,
		Messages:    p.messages(false),
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp claudeResponse
	if err := PostJSON(ctx, c.client, c.Name(), c.baseURL+"/v1/messages", headers, req, &resp); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", emptyReply(c.Name())
	}
	return reply, nil
}
