package knowledge

import "context"

// Document is one question/answer pair with its question embedding.
type Document struct {
	ID        string
	Question  string
	Answer    string
	Category  string
	Language  string
	Tags      []string
	Embedding []float64
}

// Match is a retrieved document and its similarity to the query.
type Match struct {
	ID         string            `json:"id"`
	Answer     string            `json:"answer"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata"`
}

// VectorStore holds documents and ranks them by similarity.
type VectorStore interface {
	Upsert(ctx context.Context, docs []Document) error
	// Query returns at most k matches, most similar first.
	Query(ctx context.Context, vector []float64, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
