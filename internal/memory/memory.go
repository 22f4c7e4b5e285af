// Package memory implements a vector translation memory: previously fused
// translations indexed by source-text embedding, looked up by cosine
// similarity before any provider is called.
package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Garblesnarff/Translate-sub007/internal/embedding"
)

// DefaultReuseThreshold is the minimum similarity score at which a stored
// translation is reused instead of re-translating.
const DefaultReuseThreshold = 0.95

// Hit is one vector search result.
type Hit struct {
	ID         string
	Score      float64
	SourceText string
	FinalText  string
}

// VectorStore is the similarity-lookup collaborator. Its indexing and
// eviction internals are its own business.
type VectorStore interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, id string, vector []float64, sourceText, finalText string) error
	Search(ctx context.Context, vector []float64, limit int) ([]Hit, error)
}

// TranslationMemory pairs an embedder with a vector store.
type TranslationMemory struct {
	embedder  embedding.Embedder
	store     VectorStore
	threshold float64
}

func New(embedder embedding.Embedder, store VectorStore, threshold float64) *TranslationMemory {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultReuseThreshold
	}
	return &TranslationMemory{embedder: embedder, store: store, threshold: threshold}
}

// Init creates the backing collection sized to the embedder's dimension.
func (m *TranslationMemory) Init(ctx context.Context) error {
	return m.store.EnsureCollection(ctx, m.embedder.Dim())
}

// Lookup embeds sourceText and returns the best stored translation when its
// similarity reaches the reuse threshold.
func (m *TranslationMemory) Lookup(ctx context.Context, sourceText string) (string, float64, bool, error) {
	vecs, err := m.embedder.Embed(ctx, []string{sourceText})
	if err != nil {
		return "", 0, false, fmt.Errorf("embedding source text: %w", err)
	}
	hits, err := m.store.Search(ctx, vecs[0], 1)
	if err != nil {
		return "", 0, false, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 || hits[0].Score < m.threshold {
		return "", 0, false, nil
	}
	return hits[0].FinalText, hits[0].Score, true, nil
}

// Store embeds sourceText and upserts the fused translation.
func (m *TranslationMemory) Store(ctx context.Context, sourceText, finalText string) error {
	vecs, err := m.embedder.Embed(ctx, []string{sourceText})
	if err != nil {
		return fmt.Errorf("embedding source text: %w", err)
	}
	return m.store.Upsert(ctx, uuid.New().String(), vecs[0], sourceText, finalText)
}
