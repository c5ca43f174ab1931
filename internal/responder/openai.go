package responder

import (
	"context"
	"net/http"
	"strings"
)

// OpenAI calls any OpenAI-compatible /v1/chat/completions endpoint.
type OpenAI struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewOpenAI(opts BackendOptions) *OpenAI {
	return &OpenAI{
		baseURL:     orDefault(opts.BaseURL, "https://api.openai.com"),
		model:       orDefault(opts.Model, "gpt-4o-mini"),
		apiKey:      opts.APIKey,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      opts.Client,
	}
}

func (o *OpenAI) Name() string { return "openai" }

type chatCompletionRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Turn `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {
	if err := requireKey(o.Name(), o.apiKey); err != nil {
		return "", err
	}
	req := chatCompletionRequest{
		Model:       o.model,
		Messages:    p.messages(true),
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	var resp chatCompletionResponse
	if err := PostJSON(ctx, o.client, o.Name(), o.baseURL+"/v1/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", emptyReply(o.Name())
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", emptyReply(o.Name())
	}
	return reply, nil
}
