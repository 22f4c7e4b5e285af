package consensus

import "errors"

var (
	// ErrNoValidCandidates means every candidate was filtered out by the
	// minimum-confidence / empty-text gate.
	ErrNoValidCandidates = errors.New("no valid candidates after filtering")

	// ErrInvalidInput marks malformed scoring input: empty texts, fewer
	// than two texts, or a threshold outside [0,1].
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbedding marks a failed embedding call during semantic agreement
	// scoring. There is no silent fallback to lexical scoring.
	ErrEmbedding = errors.New("embedding failure")
)
