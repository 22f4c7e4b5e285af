package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Garblesnarff/Translate-sub007/internal/embedding"
)

type fakeVectorStore struct {
	hits       []Hit
	upserted   []Hit
	collection int
	searchErr  error
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, dim int) error {
	f.collection = dim
	return nil
}

func (f *fakeVectorStore) Upsert(ctx context.Context, id string, vector []float64, sourceText, finalText string) error {
	f.upserted = append(f.upserted, Hit{ID: id, SourceText: sourceText, FinalText: finalText})
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, vector []float64, limit int) ([]Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func TestTranslationMemory_Init(t *testing.T) {
	store := &fakeVectorStore{}
	tm := New(embedding.NewNoop(64), store, 0)

	if err := tm.Init(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.collection != 64 {
		t.Errorf("expected collection dim 64, got %d", store.collection)
	}
}

func TestTranslationMemory_Lookup_Hit(t *testing.T) {
	store := &fakeVectorStore{
		hits: []Hit{{ID: "1", Score: 0.97, SourceText: "source", FinalText: "stored translation"}},
	}
	tm := New(embedding.NewNoop(64), store, 0.95)

	final, score, ok, err := tm.Lookup(context.Background(), "source")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit above the threshold")
	}
	if final != "stored translation" {
		t.Errorf("unexpected final text: %q", final)
	}
	if score != 0.97 {
		t.Errorf("unexpected score: %v", score)
	}
}

func TestTranslationMemory_Lookup_BelowThreshold(t *testing.T) {
	store := &fakeVectorStore{
		hits: []Hit{{ID: "1", Score: 0.80, FinalText: "too far"}},
	}
	tm := New(embedding.NewNoop(64), store, 0.95)

	_, _, ok, err := tm.Lookup(context.Background(), "source")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss for score below threshold")
	}
}

func TestTranslationMemory_Lookup_NoHits(t *testing.T) {
	tm := New(embedding.NewNoop(64), &fakeVectorStore{}, 0)

	_, _, ok, err := tm.Lookup(context.Background(), "source")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss for empty store")
	}
}

func TestTranslationMemory_Lookup_SearchError(t *testing.T) {
	store := &fakeVectorStore{searchErr: errors.New("store down")}
	tm := New(embedding.NewNoop(64), store, 0)

	_, _, _, err := tm.Lookup(context.Background(), "source")
	if err == nil {
		t.Error("expected search error to propagate")
	}
}

func TestTranslationMemory_Store(t *testing.T) {
	store := &fakeVectorStore{}
	tm := New(embedding.NewNoop(64), store, 0)

	if err := tm.Store(context.Background(), "source text", "final text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserted))
	}
	entry := store.upserted[0]
	if entry.SourceText != "source text" || entry.FinalText != "final text" {
		t.Errorf("unexpected upserted entry: %+v", entry)
	}
	if entry.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestNew_DefaultThreshold(t *testing.T) {
	tm := New(embedding.NewNoop(64), &fakeVectorStore{}, 0)
	if tm.threshold != DefaultReuseThreshold {
		t.Errorf("expected default threshold %v, got %v", DefaultReuseThreshold, tm.threshold)
	}

	tm = New(embedding.NewNoop(64), &fakeVectorStore{}, 1.5)
	if tm.threshold != DefaultReuseThreshold {
		t.Errorf("expected default threshold for out-of-range input, got %v", tm.threshold)
	}
}
