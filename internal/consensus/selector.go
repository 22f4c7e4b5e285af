package consensus

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

// BuildSentenceConsensus fuses a primary model's translation with helper
// model translations sentence by sentence. The primary output is the
// structural backbone; a helper sentence replaces a primary sentence only
// when it both agrees strongly and carries high confidence. The whole pass
// is lexical and deterministic; no network calls.
func BuildSentenceConsensus(primary translator.Candidate, helpers []translator.Candidate) (*Result, error) {
	if strings.TrimSpace(primary.Text) == "" {
		return nil, fmt.Errorf("%w: primary translation is empty", ErrInvalidInput)
	}

	sourceCandidates := make([]translator.Candidate, 0, len(helpers)+1)
	sourceCandidates = append(sourceCandidates, primary)
	sourceCandidates = append(sourceCandidates, helpers...)

	alignments := Align(primary.Text, helpers)

	matched := make(map[string]bool)
	sentences := make([]string, 0, len(alignments))
	var agreementSum float64
	for _, a := range alignments {
		sentence, agreement := consensusSentence(a)
		sentences = append(sentences, sentence)
		agreementSum += agreement
		for _, h := range a.Helpers {
			matched[h.ModelID] = true
		}
	}

	// No helper produced a single usable sentence: the primary candidate
	// passes through verbatim.
	if len(matched) == 0 {
		return &Result{
			FinalTranslation:   primary.Text,
			Confidence:         primary.Confidence,
			AgreementScore:     1.0,
			ContributingModels: []string{primary.ModelID},
			SourceCandidates:   sourceCandidates,
		}, nil
	}

	agreement := agreementSum / float64(len(alignments))

	var helperConfSum float64
	helperCount := 0
	contributing := []string{primary.ModelID}
	for _, h := range helpers {
		if matched[h.ModelID] {
			helperConfSum += h.Confidence
			helperCount++
			contributing = append(contributing, h.ModelID)
		}
	}
	meanHelperConf := helperConfSum / float64(helperCount)

	confidence := primary.Confidence*0.4 + meanHelperConf*0.6
	confidence += agreement * 0.2
	if agreement < 0.5 {
		confidence -= 0.1
	}
	confidence = math.Max(0.1, math.Min(MaxConfidence, confidence))

	return &Result{
		FinalTranslation:   strings.Join(sentences, " "),
		Confidence:         confidence,
		AgreementScore:     agreement,
		ContributingModels: contributing,
		SourceCandidates:   sourceCandidates,
	}, nil
}

// consensusSentence resolves one aligned sentence position to its consensus
// text and agreement value.
func consensusSentence(a SentenceAlignment) (string, float64) {
	if len(a.Helpers) == 0 {
		return a.Primary, 1.0
	}

	reference := StripOriginalSpans(a.Primary)
	bestIdx := 0
	bestSim := -1.0
	for i, h := range a.Helpers {
		sim := Jaccard(reference, StripOriginalSpans(h.Sentence))
		if sim > bestSim {
			bestIdx = i
			bestSim = sim
		}
	}
	best := a.Helpers[bestIdx]

	switch {
	case bestSim >= AgreementThreshold && best.Confidence > overrideConfidence && bestSim > overrideSimilarity:
		return reinsertSpan(best.Sentence, a.EmbeddedSpan), bestSim
	case bestSim >= AgreementThreshold:
		// A corroborating helper exists but is not trusted enough to
		// override; keep the primary at a reduced agreement.
		return a.Primary, bestSim * disagreementPenalty
	default:
		return a.Primary, math.Max(bestSim, 0)
	}
}

// reinsertSpan ensures an overriding helper sentence still carries the
// primary sentence's embedded original-language span.
func reinsertSpan(sentence, span string) string {
	if span == "" || strings.Contains(sentence, span) {
		return sentence
	}
	return strings.TrimSpace(StripOriginalSpans(sentence)) + " (" + span + ")"
}

// BuildWeightedConsensus selects a winner from an unranked candidate pool.
// Candidates below MinConfidenceThreshold or with empty text are dropped;
// the rest compete on confidence weighted by the pool's global agreement,
// which scorer computes over every surviving text. Ties keep the earliest
// candidate, so input order must be deterministic.
func BuildWeightedConsensus(ctx context.Context, candidates []translator.Candidate, scorer Scorer) (*Result, error) {
	surviving := make([]translator.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence < MinConfidenceThreshold || strings.TrimSpace(c.Text) == "" {
			continue
		}
		surviving = append(surviving, c)
	}

	if len(surviving) == 0 {
		return nil, ErrNoValidCandidates
	}

	if len(surviving) == 1 {
		only := surviving[0]
		return &Result{
			FinalTranslation:   only.Text,
			Confidence:         math.Min(only.Confidence, MaxConfidence),
			AgreementScore:     1.0,
			ContributingModels: []string{only.ModelID},
			SourceCandidates:   candidates,
		}, nil
	}

	if scorer == nil {
		return nil, fmt.Errorf("%w: no agreement scorer configured", ErrInvalidInput)
	}

	texts := make([]string, len(surviving))
	for i, c := range surviving {
		texts[i] = c.Text
	}
	agreement, err := scorer.Score(ctx, texts)
	if err != nil {
		return nil, err
	}

	contributing := make([]string, len(surviving))
	winnerIdx := 0
	bestWeight := -1.0
	for i, c := range surviving {
		contributing[i] = c.ModelID
		weight := c.Confidence * (0.7 + agreement*0.3)
		if weight > bestWeight {
			winnerIdx = i
			bestWeight = weight
		}
	}
	winner := surviving[winnerIdx]

	return &Result{
		FinalTranslation:   winner.Text,
		Confidence:         Calibrate(winner.Confidence, agreement),
		AgreementScore:     agreement,
		ContributingModels: contributing,
		SourceCandidates:   candidates,
	}, nil
}
