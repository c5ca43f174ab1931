package responder

import (
	"context"
	"net/http"
	"strings"
)

// Ollama talks to a local model server's /api/chat endpoint.
type Ollama struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewOllama(opts BackendOptions) *Ollama {
	return &Ollama{
		baseURL:     orDefault(opts.BaseURL, "http://localhost:11434"),
		model:       orDefault(opts.Model, "llama3"),
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      opts.Client,
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []Turn        `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Message Turn `json:"message"`
}

func (o *Ollama) Complete(ctx context.Context, p Prompt) (string, error) {
	req := ollamaRequest{
		Model:    o.model,
		Messages: p.messages(true),
		Options:  ollamaOptions{Temperature: o.temperature, NumPredict: o.maxTokens},
	}
	var resp ollamaResponse
	if err := PostJSON(ctx, o.client, o.Name(), o.baseURL+"/api/chat", nil, req, &resp); err != nil {
		return "", err
	}
	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return "", emptyReply(o.Name())
	}
	return reply, nil
}
