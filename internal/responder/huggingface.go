package responder

import (
	"context"
	"net/http"
	"strings"
)

// HuggingFace calls the hosted inference API text-generation task.
type HuggingFace struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewHuggingFace(opts BackendOptions) *HuggingFace {
	return &HuggingFace{
		baseURL:     orDefault(opts.BaseURL, "https://api-inference.huggingface.co"),
		model:       orDefault(opts.Model, "mistralai/Mistral-7B-Instruct-v0.2"),
		apiKey:      opts.APIKey,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      opts.Client,
	}
}

func (h *HuggingFace) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFace) Complete(ctx context.Context, p Prompt) (string, error) {
	if err := requireKey(h.Name(), h.apiKey); err != nil {
		return "", err
	}
	req := hfRequest{
		Inputs:     renderTranscript(p),
		Parameters: hfParameters{MaxNewTokens: h.maxTokens, Temperature: h.temperature},
	}
	headers := map[string]string{"Authorization": "Bearer " + h.apiKey}

	var resp []hfGeneration
	if err := PostJSON(ctx, h.client, h.Name(), h.baseURL+"/models/"+h.model, headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", emptyReply(h.Name())
	}
	reply := strings.TrimSpace(resp[0].GeneratedText)
	if reply == "" {
		return "", emptyReply(h.Name())
	}
	return reply, nil
}

// renderTranscript turns a chat prompt into the plain text the
// text-generation task expects.
func renderTranscript(p Prompt) string {
	var b strings.Builder
	if p.System != "" {
		b.WriteString(p.System)
		b.WriteString("\n\n")
	}
	for _, t := range p.History {
		if t.Role == RoleAssistant {
			b.WriteString("Assistant: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(p.Message)
	b.WriteString("\nAssistant:")
	return b.String()
}
