package responder

import (
	"context"
	"math/rand/v2"
	"strings"
)

// DefaultSystemPrompt frames the assistant for text-generation backends.
const DefaultSystemPrompt = `You are a friendly customer support assistant for DigiMax, a digital marketing agency offering SEO optimization, social media marketing, web design, content creation and digital advertising.
Answer briefly and politely. If you are not sure about an answer, or the visitor needs account-specific help, offer to connect them with a human agent.`

var DefaultHandoffKeywords = []string{
	"human", "agent", "representative", "real person", "live chat",
	"speak to someone", "talk to someone", "customer service",
	"manager", "supervisor", "help me",
}

// FAQ maps a set of keywords to a canned answer.
type FAQ struct {
	Topic    string
	Keywords []string
	Answer   string
}

// DefaultFAQs are matched in order; the first entry with a keyword hit wins.
var DefaultFAQs = []FAQ{
	{
		Topic:    "hours",
		Keywords: []string{"hours", "open", "available", "schedule", "business hours"},
		Answer:   "We are available Monday to Friday, 9 AM to 6 PM EST. Our AI assistant is available 24/7 to answer basic questions!",
	},
	{
		Topic:    "pricing",
		Keywords: []string{"price", "cost", "pricing", "how much", "quote"},
		Answer:   "Our pricing varies based on your specific needs. I can connect you with a sales representative who can provide a detailed quote. Would you like to speak with someone?",
	},
	{
		Topic:    "services",
		Keywords: []string{"services", "what do you do", "offerings", "provide"},
		Answer:   "DigiMax offers SEO optimization, social media marketing, web design, content creation, and digital advertising. Which service interests you?",
	},
	{
		Topic:    "contact",
		Keywords: []string{"contact", "email", "phone", "reach you"},
		Answer:   "You can reach us at support@digimax.com or call us at (555) 123-4567. You can also continue chatting here with our AI assistant or request a human agent!",
	},
}

var DefaultFallbacks = []string{
	"I'm having trouble connecting right now. Let me connect you with a human agent who can help you better.",
	"I apologize, but I'm experiencing technical difficulties. Would you like to speak with a live agent?",
	"Sorry, I'm not able to process that right now. Let me transfer you to a human representative.",
}

// AIResponder answers visitors with keyword shortcuts first and a
// text-generation backend second. It keeps no per-conversation state.
type AIResponder struct {
	backend         Backend
	systemPrompt    string
	handoffKeywords []string
	faqs            []FAQ
	fallbacks       []string
}

type Option func(*AIResponder)

func WithSystemPrompt(p string) Option     { return func(r *AIResponder) { r.systemPrompt = p } }
func WithHandoffKeywords(k []string) Option { return func(r *AIResponder) { r.handoffKeywords = k } }
func WithFAQs(f []FAQ) Option               { return func(r *AIResponder) { r.faqs = f } }
func WithFallbacks(f []string) Option       { return func(r *AIResponder) { r.fallbacks = f } }

func NewAIResponder(backend Backend, opts ...Option) *AIResponder {
	r := &AIResponder{
		backend:         backend,
		systemPrompt:    DefaultSystemPrompt,
		handoffKeywords: DefaultHandoffKeywords,
		faqs:            DefaultFAQs,
		fallbacks:       DefaultFallbacks,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate asks the backend for a reply to text given the prior turns.
func (r *AIResponder) Generate(ctx context.Context, text string, history []Turn) (string, error) {
	if r.backend == nil {
		return "", ErrBackendUnavailable
	}
	return r.backend.Complete(ctx, Prompt{System: r.systemPrompt, History: history, Message: text})
}

func (r *AIResponder) ShouldHandoff(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range r.handoffKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (r *AIResponder) FAQAnswer(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, faq := range r.faqs {
		for _, kw := range faq.Keywords {
			if strings.Contains(lower, kw) {
				return faq.Answer, true
			}
		}
	}
	return "", false
}

// Fallback returns a random sentence from the fallback pool.
func (r *AIResponder) Fallback() string {
	if len(r.fallbacks) == 0 {
		return DefaultFallbacks[0]
	}
	return r.fallbacks[rand.IntN(len(r.fallbacks))]
}
