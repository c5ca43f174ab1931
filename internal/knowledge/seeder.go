package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"livechat/backend/internal/models"
)

// Dataset is the knowledge base seed file format.
type Dataset struct {
	Documents []SeedDocument `json:"documents"`
}

type SeedDocument struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Metadata struct {
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
		Language string   `json:"language"`
	} `json:"metadata"`
}

// Catalog records seeded documents in the relational store.
type Catalog interface {
	SaveKnowledgeDocument(doc *models.KnowledgeDocument) error
	DeleteKnowledgeDocuments() error
}

type Seeder struct {
	embedder Embedder
	store    VectorStore
	catalog  Catalog // optional
}

func NewSeeder(embedder Embedder, store VectorStore, catalog Catalog) *Seeder {
	return &Seeder{embedder: embedder, store: store, catalog: catalog}
}

func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return &ds, nil
}

// Seed embeds every question and stores it with its answer. Documents with a
// known id replace the previous version. It returns the number stored.
func (s *Seeder) Seed(ctx context.Context, ds *Dataset) (int, error) {
	stored := 0
	for i, d := range ds.Documents {
		if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.Question) == "" || strings.TrimSpace(d.Answer) == "" {
			return stored, fmt.Errorf("document %d: id, question and answer are required", i)
		}

		vec, err := s.embedder.Embed(ctx, Normalize(d.Question))
		if err != nil {
			return stored, fmt.Errorf("embed %s: %w", d.ID, err)
		}

		lang := d.Metadata.Language
		if lang == "" {
			lang = "id"
		}
		category := d.Metadata.Category
		if category == "" {
			category = "general"
		}

		doc := Document{
			ID:        d.ID,
			Question:  d.Question,
			Answer:    d.Answer,
			Category:  category,
			Language:  lang,
			Tags:      d.Metadata.Tags,
			Embedding: vec,
		}
		if err := s.store.Upsert(ctx, []Document{doc}); err != nil {
			return stored, err
		}

		if s.catalog != nil {
			entry := &models.KnowledgeDocument{
				ID:       d.ID,
				Question: d.Question,
				Answer:   d.Answer,
				Category: category,
				Language: lang,
				Tags:     d.Metadata.Tags,
			}
			if err := s.catalog.SaveKnowledgeDocument(entry); err != nil {
				log.Printf("WARNING: knowledge document %s stored but not cataloged: %v", d.ID, err)
			}
		}
		stored++
	}
	return stored, nil
}

// Clear empties the vector store and the catalog.
func (s *Seeder) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	if s.catalog != nil {
		return s.catalog.DeleteKnowledgeDocuments()
	}
	return nil
}
