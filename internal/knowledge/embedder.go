package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"livechat/backend/internal/responder"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type EmbedderOptions struct {
	Model   string
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewEmbedder selects an embedding backend by provider name.
func NewEmbedder(provider string, opts EmbedderOptions) (Embedder, error) {
	if opts.Client == nil {
		opts.Client = responder.NewHTTPClient()
	}
	switch strings.ToLower(provider) {
	case "huggingface", "hf":
		return &HuggingFaceEmbedder{
			baseURL: trimURL(opts.BaseURL, "https://api-inference.huggingface.co"),
			model:   opts.Model,
			apiKey:  opts.APIKey,
			client:  opts.Client,
		}, nil
	case "openai", "ollama", "lmstudio":
		return &OpenAIEmbedder{
			baseURL: trimURL(opts.BaseURL, "https://api.openai.com"),
			model:   opts.Model,
			apiKey:  opts.APIKey,
			client:  opts.Client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

func trimURL(v, def string) string {
	if v == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}

// HuggingFaceEmbedder uses the inference API feature-extraction task.
type HuggingFaceEmbedder struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func (e *HuggingFaceEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	req := map[string]any{
		"inputs":  text,
		"options": map[string]bool{"wait_for_model": true},
	}
	headers := map[string]string{}
	if e.apiKey != "" {
		headers["Authorization"] = "Bearer " + e.apiKey
	}

	var raw json.RawMessage
	if err := responder.PostJSON(ctx, e.client, "huggingface-embeddings", e.baseURL+"/models/"+e.model, headers, req, &raw); err != nil {
		return nil, err
	}
	return decodeFeatureVector(raw)
}

// decodeFeatureVector accepts a flat vector or a batch of one.
func decodeFeatureVector(raw json.RawMessage) ([]float64, error) {
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}
	return nil, fmt.Errorf("huggingface-embeddings: %w: unexpected embedding shape", responder.ErrBackendError)
}

// OpenAIEmbedder calls an OpenAI-compatible /v1/embeddings endpoint
// (OpenAI, Ollama, LM Studio).
type OpenAIEmbedder struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	headers := map[string]string{}
	if e.apiKey != "" {
		headers["Authorization"] = "Bearer " + e.apiKey
	}

	var resp embeddingResponse
	req := embeddingRequest{Model: e.model, Input: []string{text}}
	if err := responder.PostJSON(ctx, e.client, "openai-embeddings", e.baseURL+"/v1/embeddings", headers, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai-embeddings: %w: no embedding returned", responder.ErrBackendError)
	}
	return resp.Data[0].Embedding, nil
}
