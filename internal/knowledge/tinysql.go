package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"sync"

	tinysql "github.com/SimonWaldherr/tinySQL"
)

const createTableSQL = "CREATE TABLE IF NOT EXISTS kb_documents (id TEXT, question TEXT, answer TEXT, category TEXT, language TEXT, tags TEXT, embedding VECTOR)"

// TinySQLStore keeps the knowledge base in an embedded tinySQL database,
// persisted as a GOB snapshot after every write when a path is set.
type TinySQLStore struct {
	mu   sync.Mutex // tinySQL isn't designed for concurrent writers
	db   *tinysql.DB
	path string
}

// OpenTinySQLStore loads the snapshot at path if it exists. An empty path
// keeps the store in memory only.
func OpenTinySQLStore(path string) (*TinySQLStore, error) {
	db := tinysql.NewDB()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := tinysql.LoadFromFile(path)
			if err != nil {
				return nil, fmt.Errorf("load knowledge base %s: %w", path, err)
			}
			db = loaded
			log.Printf("INFO: Loaded knowledge base from %s", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat knowledge base %s: %w", path, err)
		}
	}

	s := &TinySQLStore{db: db, path: path}
	if err := s.exec(context.Background(), createTableSQL, nil); err != nil {
		return nil, fmt.Errorf("create knowledge table: %w", err)
	}
	return s, nil
}

// exec runs one statement and hands every result row to each, if set.
func (s *TinySQLStore) exec(ctx context.Context, q string, each func(get func(col string) any)) error {
	stmt, err := tinysql.ParseSQL(q)
	if err != nil {
		return err
	}

	s.mu.Lock()
	rs, err := tinysql.Execute(ctx, s.db, "default", stmt)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if rs == nil || each == nil {
		return nil
	}
	for _, row := range rs.Rows {
		each(func(col string) any {
			v, _ := tinysql.GetVal(row, col)
			return v
		})
	}
	return nil
}

func (s *TinySQLStore) save() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return tinysql.SaveToFile(s.db, s.path)
}

// Upsert replaces documents with the same id.
func (s *TinySQLStore) Upsert(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", d.ID)
		}
		if err := s.exec(ctx, fmt.Sprintf("DELETE FROM kb_documents WHERE id = '%s'", escapeSQ(d.ID)), nil); err != nil {
			return fmt.Errorf("delete document %s: %w", d.ID, err)
		}
		q := fmt.Sprintf(
			"INSERT INTO kb_documents VALUES ('%s', '%s', '%s', '%s', '%s', '%s', VEC_FROM_JSON('%s'))",
			escapeSQ(d.ID), escapeSQ(d.Question), escapeSQ(d.Answer), escapeSQ(d.Category),
			escapeSQ(d.Language), escapeSQ(strings.Join(d.Tags, ",")), vecJSON(d.Embedding),
		)
		if err := s.exec(ctx, q, nil); err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
	}
	return s.save()
}

// Query ranks documents by cosine similarity.
func (s *TinySQLStore) Query(ctx context.Context, vector []float64, k int) ([]Match, error) {
	if k <= 0 {
		k = 1
	}
	q := fmt.Sprintf(
		"SELECT id, question, answer, category, language, tags, VEC_COSINE_SIMILARITY(embedding, VEC_FROM_JSON('%s')) AS score FROM kb_documents ORDER BY score DESC LIMIT %d",
		vecJSON(vector), k,
	)
	var matches []Match
	err := s.exec(ctx, q, func(get func(string) any) {
		matches = append(matches, Match{
			ID:         str(get("id")),
			Answer:     str(get("answer")),
			Similarity: num(get("score")),
			Metadata: map[string]string{
				"question": str(get("question")),
				"category": str(get("category")),
				"language": str(get("language")),
				"tags":     str(get("tags")),
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query knowledge base: %w", err)
	}
	return matches, nil
}

func (s *TinySQLStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.exec(ctx, "SELECT COUNT(*) AS cnt FROM kb_documents", func(get func(string) any) {
		count = int(num(get("cnt")))
	})
	return count, err
}

// Clear drops and recreates the table; tinySQL ignores a DELETE without WHERE.
func (s *TinySQLStore) Clear(ctx context.Context) error {
	if err := s.exec(ctx, "DROP TABLE kb_documents", nil); err != nil {
		return fmt.Errorf("clear knowledge base: %w", err)
	}
	if err := s.exec(ctx, createTableSQL, nil); err != nil {
		return fmt.Errorf("recreate knowledge table: %w", err)
	}
	return s.save()
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// escapeSQ escapes single quotes for safe SQL insertion.
func escapeSQ(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func vecJSON(v []float64) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
