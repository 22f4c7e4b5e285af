package consensus

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/Garblesnarff/Translate-sub007/internal/embedding"
)

// Scorer computes a 0–1 agreement value over a set of candidate texts.
// For more than two texts the agreement is the arithmetic mean of all
// pairwise similarities.
type Scorer interface {
	Score(ctx context.Context, texts []string) (float64, error)
}

// Jaccard returns the word-set overlap of a and b: |intersection| / |union|
// over lowercased, punctuation-stripped, NFC-normalized tokens. An empty
// union yields 0. Symmetric and deterministic.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	s = norm.NFC.String(strings.ToLower(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return r
	}, s)

	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// Cosine returns the cosine similarity of u and v: dot(u,v) / (‖u‖·‖v‖).
// If either norm is zero the similarity is 0. Vectors of different lengths
// are an input error.
func Cosine(u, v []float64) (float64, error) {
	if len(u) != len(v) {
		return 0, fmt.Errorf("%w: vector dimensions differ (%d vs %d)", ErrInvalidInput, len(u), len(v))
	}
	var dot, nu, nv float64
	for i := range u {
		dot += u[i] * v[i]
		nu += u[i] * u[i]
		nv += v[i] * v[i]
	}
	if nu == 0 || nv == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(nu) * math.Sqrt(nv)), nil
}

// LexicalScorer scores agreement by mean pairwise Jaccard similarity.
// It makes no external calls.
type LexicalScorer struct{}

func (LexicalScorer) Score(_ context.Context, texts []string) (float64, error) {
	if err := validateScoreInput(texts); err != nil {
		return 0, err
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(texts); i++ {
		for j := i + 1; j < len(texts); j++ {
			sum += Jaccard(texts[i], texts[j])
			pairs++
		}
	}
	return sum / float64(pairs), nil
}

// SemanticScorer scores agreement by mean pairwise cosine similarity of
// embedding vectors. Each text is embedded in its own call; the calls run
// concurrently and in no particular order. Embedding failures propagate;
// they are never treated as zero agreement.
type SemanticScorer struct {
	Embedder embedding.Embedder
}

func (s SemanticScorer) Score(ctx context.Context, texts []string) (float64, error) {
	if err := validateScoreInput(texts); err != nil {
		return 0, err
	}
	if s.Embedder == nil {
		return 0, fmt.Errorf("%w: no embedder configured", ErrEmbedding)
	}

	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		g.Go(func() error {
			vecs, err := s.Embedder.Embed(gctx, []string{text})
			if err != nil {
				return err
			}
			if len(vecs) != 1 {
				return fmt.Errorf("embedder returned %d vectors for one text", len(vecs))
			}
			vectors[i] = vecs[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sim, err := Cosine(vectors[i], vectors[j])
			if err != nil {
				return 0, err
			}
			sum += sim
			pairs++
		}
	}
	return sum / float64(pairs), nil
}

func validateScoreInput(texts []string) error {
	if len(texts) < 2 {
		return fmt.Errorf("%w: agreement needs at least 2 texts, got %d", ErrInvalidInput, len(texts))
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
