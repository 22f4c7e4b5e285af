// Package embedding defines the embedding gateway: a uniform capability
// mapping strings to fixed-dimension numeric vectors. The consensus engine
// uses it only for semantic agreement scoring and translation-memory lookup;
// how vectors are computed is opaque to callers.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
)

// Embedder maps each input text to one vector. The returned slice is
// parallel to texts; every vector has length Dim(). Errors are never
// silently converted to zero vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Dim() int
	Name() string
}

// Noop is a deterministic offline embedder: each text hashes to a seeded
// pseudo-random unit vector, so identical texts always produce identical
// vectors. Used in tests and as a no-network fallback.
type Noop struct {
	dim int
}

func NewNoop(dim int) *Noop {
	if dim <= 0 {
		dim = 256
	}
	return &Noop{dim: dim}
}

func (n *Noop) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		out = append(out, pseudoVector(text, n.dim))
	}
	return out, nil
}

func (n *Noop) Dim() int {
	return n.dim
}

func (n *Noop) Name() string {
	return "noop"
}

func pseudoVector(text string, dim int) []float64 {
	h := sha256.Sum256([]byte(text))
	seed := int64(binary.LittleEndian.Uint64(h[:8]))
	rnd := rand.New(rand.NewSource(seed))
	vec := make([]float64, dim)
	for i := 0; i < dim; i++ {
		vec[i] = rnd.Float64()*2 - 1
	}
	return normalize(vec)
}

func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
