// Package consensus fuses candidate translations from independent providers
// into a single result with a calibrated confidence score.
//
// Two selection strategies are offered:
//
//   - BuildSentenceConsensus aligns a primary model's sentences against
//     secondary "helper" models and corroborates or overrides each sentence
//     individually (lexical agreement only, no network calls).
//   - BuildWeightedConsensus picks a winner from an unranked candidate pool
//     using confidence-weighted voting over a global semantic agreement
//     score.
//
// Both paths end in a confidence value capped at MaxConfidence.
package consensus

import (
	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

const (
	// MaxConfidence is the hard cap on any confidence this package emits.
	MaxConfidence = 0.98

	// MinConfidenceThreshold filters candidates out of the weighted
	// strategy before any agreement computation.
	MinConfidenceThreshold = 0.3

	// AgreementThreshold is the lexical similarity above which a helper
	// sentence is considered to corroborate the primary sentence.
	AgreementThreshold = 0.7

	// overrideSimilarity and overrideConfidence gate the stricter check
	// that lets a helper sentence replace the primary sentence outright.
	overrideSimilarity = 0.8
	overrideConfidence = 0.8

	// contentMatchThreshold is the minimum lexical similarity for the
	// content-based alignment fallback to accept a helper sentence.
	contentMatchThreshold = 0.3

	// disagreementPenalty scales the agreement score when a corroborating
	// helper exists but is not trusted enough to override the primary.
	disagreementPenalty = 0.8
)

// HelperSentence is one helper model's sentence matched to a primary
// sentence position. Sentence is never empty: positions with no usable
// helper sentence are dropped, not recorded as blanks.
type HelperSentence struct {
	ModelID    string
	Sentence   string
	Confidence float64
}

// SentenceAlignment is the matched set of sentence-level candidates for one
// logical sentence position of the primary translation.
type SentenceAlignment struct {
	Primary      string
	Helpers      []HelperSentence
	EmbeddedSpan string
}

// Result is the final fused output of either consensus strategy.
// SourceCandidates is retained for audit and is never reprocessed.
type Result struct {
	FinalTranslation   string                 `json:"final_translation"`
	Confidence         float64                `json:"confidence"`
	AgreementScore     float64                `json:"agreement_score"`
	ContributingModels []string               `json:"contributing_models"`
	SourceCandidates   []translator.Candidate `json:"source_candidates"`
}
