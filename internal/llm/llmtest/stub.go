// Package llmtest provides a deterministic llm.Client stub for tests.
package llmtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/jonathan/ats-optimizer/internal/llm"
)

// StubClient is a canned-response llm.Client. Responses are returned in order
// per method; when the queue runs out the last entry repeats. Prompts are
// recorded for assertions.
type StubClient struct {
	ContentResponses []string
	JSONResponses    []string
	Err              error

	ContentPrompts []string
	JSONPrompts    []string

	contentCalls int
	jsonCalls    int
}

var _ llm.Client = (*StubClient)(nil)

// GenerateContent returns the next canned content response.
func (s *StubClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	s.ContentPrompts = append(s.ContentPrompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.ContentResponses) == 0 {
		return "", fmt.Errorf("stub: no content responses configured")
	}
	resp := s.ContentResponses[min(s.contentCalls, len(s.ContentResponses)-1)]
	s.contentCalls++
	return resp, nil
}

// GenerateJSON returns the next canned JSON response.
func (s *StubClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	s.JSONPrompts = append(s.JSONPrompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.JSONResponses) == 0 {
		return "", fmt.Errorf("stub: no JSON responses configured")
	}
	resp := s.JSONResponses[min(s.jsonCalls, len(s.JSONResponses)-1)]
	s.jsonCalls++
	return resp, nil
}

// Embed returns deterministic pseudo-embeddings derived from a hash of each
// text. Identical texts always map to identical vectors.
func (s *StubClient) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = HashVector(text)
	}
	return vectors, nil
}

// Close is a no-op.
func (s *StubClient) Close() error { return nil }

// HashVector derives a normalized 8-dimensional vector from text. Useful for
// building known-similarity fixtures: identical text gives similarity 1.0.
func HashVector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, 8)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed>>33))/float64(1<<31) - 1.0
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}
