// Package knowledge answers visitor questions from a seeded question/answer
// base using embeddings and similarity search.
package knowledge

import (
	"context"
	"fmt"
)

// Answer is the outcome of one knowledge-base lookup. When Confident is
// false, Text holds the fallback message.
type Answer struct {
	Text      string  `json:"text"`
	Confident bool    `json:"confident"`
	Matches   []Match `json:"matches"`
}

type Responder struct {
	embedder  Embedder
	store     VectorStore
	threshold float64
	topK      int
	fallback  string
}

func NewResponder(embedder Embedder, store VectorStore, threshold float64, topK int, fallback string) *Responder {
	if topK <= 0 {
		topK = 3
	}
	return &Responder{
		embedder:  embedder,
		store:     store,
		threshold: threshold,
		topK:      topK,
		fallback:  fallback,
	}
}

// Embed normalizes text before embedding it.
func (r *Responder) Embed(ctx context.Context, text string) ([]float64, error) {
	return r.embedder.Embed(ctx, Normalize(text))
}

func (r *Responder) Query(ctx context.Context, vector []float64, k int) ([]Match, error) {
	return r.store.Query(ctx, vector, k)
}

// Answer looks text up in the knowledge base. The best match is accepted when
// its similarity reaches the threshold (inclusive).
func (r *Responder) Answer(ctx context.Context, text string) (*Answer, error) {
	vec, err := r.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	matches, err := r.Query(ctx, vec, r.topK)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 || matches[0].Similarity < r.threshold {
		return &Answer{Text: r.fallback, Matches: matches}, nil
	}
	return &Answer{Text: matches[0].Answer, Confident: true, Matches: matches}, nil
}

func (r *Responder) Fallback() string { return r.fallback }
