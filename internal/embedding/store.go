// Package embedding maintains a vector index over capability statements and
// answers nearest-neighbor queries for bullet/requirement matching.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/types"
)

const collectionName = "capabilities"

// Match pairs a capability statement with its similarity to the query text.
type Match struct {
	Statement  types.CapabilityStatement
	Similarity float64
}

// Store is an in-memory vector index over capability statements. Rebuild
// replaces the whole index; queries against an empty index return no matches
// rather than erroring.
type Store struct {
	db     *chromem.DB
	client llm.Client

	mu         sync.RWMutex
	collection *chromem.Collection
	generation int
	count      int
}

// NewStore creates an empty store backed by the given embedding client.
func NewStore(client llm.Client) *Store {
	return &Store{
		db:     chromem.NewDB(),
		client: client,
	}
}

// embeddingFunc adapts the LLM client's batch embedding API to single texts.
func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := s.client.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("embedding returned no vectors")
		}
		return vectors[0], nil
	}
}

// Rebuild replaces the index contents with the given statements. Calling it
// again with the same statements produces an equivalent index; the generation
// counter increments on every rebuild so callers can detect staleness.
func (s *Store) Rebuild(ctx context.Context, statements []types.CapabilityStatement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection != nil {
		if err := s.db.DeleteCollection(collectionName); err != nil {
			return fmt.Errorf("failed to reset collection: %w", err)
		}
		s.collection = nil
		s.count = 0
	}

	collection, err := s.db.CreateCollection(collectionName, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(statements))
	for i, stmt := range statements {
		if stmt.Text == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("stmt-%d", i),
			Content: stmt.Text,
			Metadata: map[string]string{
				"source":     string(stmt.Source),
				"provenance": stmt.Provenance,
			},
		})
	}

	// Embedding providers are rate limited; documents are added serially.
	if len(docs) > 0 {
		if err := collection.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("failed to index statements: %w", err)
		}
	}

	s.collection = collection
	s.count = len(docs)
	s.generation++
	return nil
}

// Generation returns how many times the index has been rebuilt.
func (s *Store) Generation() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Count returns the number of indexed statements.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Query returns up to k statements nearest to text, most similar first.
func (s *Store) Query(ctx context.Context, text string, k int) ([]Match, error) {
	s.mu.RLock()
	collection, count := s.collection, s.count
	s.mu.RUnlock()

	if collection == nil || count == 0 || text == "" {
		return nil, nil
	}
	if k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			Statement: types.CapabilityStatement{
				Text:       r.Content,
				Source:     types.SourceKind(r.Metadata["source"]),
				Provenance: r.Metadata["provenance"],
			},
			Similarity: float64(r.Similarity),
		})
	}
	return matches, nil
}

// RelevantEvidence returns the statements within the top k whose similarity
// meets the threshold.
func (s *Store) RelevantEvidence(ctx context.Context, text string, threshold float64, k int) ([]types.CapabilityStatement, error) {
	matches, err := s.Query(ctx, text, k)
	if err != nil {
		return nil, err
	}
	var evidence []types.CapabilityStatement
	for _, m := range matches {
		if m.Similarity >= threshold {
			evidence = append(evidence, m.Statement)
		}
	}
	return evidence, nil
}

// Similarity embeds both texts and returns their cosine similarity.
func (s *Store) Similarity(ctx context.Context, a, b string) (float64, error) {
	if a == "" || b == "" {
		return 0, nil
	}
	vectors, err := s.client.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	if len(vectors) < 2 {
		return 0, fmt.Errorf("embedding returned %d vectors, expected 2", len(vectors))
	}
	return cosine(vectors[0], vectors[1]), nil
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
