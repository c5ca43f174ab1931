package responder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Role of a conversation turn as the chat backends understand it.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is everything a backend needs for one completion.
type Prompt struct {
	System  string
	History []Turn
	Message string
}

// messages flattens the prompt into the chat-completions message list.
func (p Prompt) messages(withSystem bool) []Turn {
	out := make([]Turn, 0, len(p.History)+2)
	if withSystem && p.System != "" {
		out = append(out, Turn{Role: RoleSystem, Content: p.System})
	}
	out = append(out, p.History...)
	return append(out, Turn{Role: RoleUser, Content: p.Message})
}

// Backend generates a reply for a prompt.
type Backend interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

type BackendOptions struct {
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Client      *http.Client
}

// NewBackend selects a backend by provider name.
func NewBackend(provider string, opts BackendOptions) (Backend, error) {
	if opts.Client == nil {
		opts.Client = NewHTTPClient()
	}
	switch strings.ToLower(provider) {
	case "ollama":
		return NewOllama(opts), nil
	case "openai":
		return NewOpenAI(opts), nil
	case "claude", "anthropic":
		return NewClaude(opts), nil
	case "huggingface", "hf":
		return NewHuggingFace(opts), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", provider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}

func requireKey(backend, key string) error {
	if key == "" {
		return fmt.Errorf("%s: %w: api key is not configured", backend, ErrBackendUnavailable)
	}
	return nil
}

func emptyReply(backend string) error {
	return fmt.Errorf("%s: %w: empty reply", backend, ErrBackendError)
}
