package consensus

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

type stubScorer struct {
	score float64
	err   error
}

func (s stubScorer) Score(context.Context, []string) (float64, error) {
	return s.score, s.err
}

func TestBuildSentenceConsensus_EmptyPrimary(t *testing.T) {
	_, err := BuildSentenceConsensus(translator.Candidate{Text: "  "}, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildSentenceConsensus_NoHelpers(t *testing.T) {
	primary := translator.Candidate{Text: "The mind is luminous.", Confidence: 0.7, ModelID: "m1"}

	result, err := BuildSentenceConsensus(primary, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalTranslation != primary.Text {
		t.Errorf("expected primary passthrough, got %q", result.FinalTranslation)
	}
	if result.Confidence != 0.7 {
		t.Errorf("expected confidence unchanged at 0.7, got %v", result.Confidence)
	}
	if result.AgreementScore != 1.0 {
		t.Errorf("expected agreement 1.0, got %v", result.AgreementScore)
	}
	if !reflect.DeepEqual(result.ContributingModels, []string{"m1"}) {
		t.Errorf("unexpected contributing models: %v", result.ContributingModels)
	}
}

func TestBuildSentenceConsensus_NoUsableHelperSentences(t *testing.T) {
	primary := translator.Candidate{Text: "The mind is luminous.", Confidence: 0.7, ModelID: "m1"}
	helpers := []translator.Candidate{
		{Text: "   ", Confidence: 0.9, ModelID: "m2"},
	}

	result, err := BuildSentenceConsensus(primary, helpers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalTranslation != primary.Text {
		t.Errorf("expected primary passthrough, got %q", result.FinalTranslation)
	}
	if result.Confidence != 0.7 {
		t.Errorf("expected confidence unchanged, got %v", result.Confidence)
	}
	if result.AgreementScore != 1.0 {
		t.Errorf("expected agreement 1.0, got %v", result.AgreementScore)
	}
}

func TestBuildSentenceConsensus_ConfidentHelperOverrides(t *testing.T) {
	primary := translator.Candidate{Text: "The mind is luminous.", Confidence: 0.7, ModelID: "m1"}
	helpers := []translator.Candidate{
		{Text: "The mind is luminous.", Confidence: 0.9, ModelID: "m2"},
	}

	result, err := BuildSentenceConsensus(primary, helpers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalTranslation != "The mind is luminous." {
		t.Errorf("unexpected final translation: %q", result.FinalTranslation)
	}
	if result.AgreementScore != 1.0 {
		t.Errorf("expected agreement 1.0, got %v", result.AgreementScore)
	}
	// 0.7*0.4 + 0.9*0.6 + 1.0*0.2 clamps at the confidence ceiling.
	if result.Confidence != MaxConfidence {
		t.Errorf("expected confidence %v, got %v", MaxConfidence, result.Confidence)
	}
	if !reflect.DeepEqual(result.ContributingModels, []string{"m1", "m2"}) {
		t.Errorf("unexpected contributing models: %v", result.ContributingModels)
	}
}

func TestBuildSentenceConsensus_CorroboratingHelperKeepsPrimary(t *testing.T) {
	// The helper agrees but its confidence is too low to override.
	primary := translator.Candidate{Text: "The mind is luminous.", Confidence: 0.7, ModelID: "m1"}
	helpers := []translator.Candidate{
		{Text: "The mind is luminous.", Confidence: 0.5, ModelID: "m2"},
	}

	result, err := BuildSentenceConsensus(primary, helpers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalTranslation != primary.Text {
		t.Errorf("expected primary kept, got %q", result.FinalTranslation)
	}
	if math.Abs(result.AgreementScore-0.8) > 1e-9 {
		t.Errorf("expected penalized agreement 0.8, got %v", result.AgreementScore)
	}
	// 0.7*0.4 + 0.5*0.6 + 0.8*0.2 = 0.74
	if math.Abs(result.Confidence-0.74) > 1e-9 {
		t.Errorf("expected confidence 0.74, got %v", result.Confidence)
	}
}

func TestBuildSentenceConsensus_DisagreeingHelper(t *testing.T) {
	primary := translator.Candidate{Text: "The sky is blue.", Confidence: 0.8, ModelID: "m1"}
	helpers := []translator.Candidate{
		{Text: "Totally different words entirely.", Confidence: 0.9, ModelID: "m2"},
	}

	result, err := BuildSentenceConsensus(primary, helpers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalTranslation != primary.Text {
		t.Errorf("expected primary kept on disagreement, got %q", result.FinalTranslation)
	}
	if result.AgreementScore != 0 {
		t.Errorf("expected agreement 0, got %v", result.AgreementScore)
	}
	// 0.8*0.4 + 0.9*0.6 + 0 - 0.1 = 0.76
	if math.Abs(result.Confidence-0.76) > 1e-9 {
		t.Errorf("expected confidence 0.76, got %v", result.Confidence)
	}
}

func TestBuildSentenceConsensus_SpanSurvivesOverride(t *testing.T) {
	primary := translator.Candidate{Text: "Bliss (བདེ་བ།) arises.", Confidence: 0.7, ModelID: "m1"}
	helpers := []translator.Candidate{
		{Text: "Bliss arises.", Confidence: 0.9, ModelID: "m2"},
	}

	result, err := BuildSentenceConsensus(primary, helpers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.FinalTranslation, "བདེ་བ།") {
		t.Errorf("embedded span lost in override: %q", result.FinalTranslation)
	}
}

func TestBuildSentenceConsensus_Deterministic(t *testing.T) {
	primary := translator.Candidate{Text: "The mind is luminous. Its nature is empty.", Confidence: 0.7, ModelID: "m1"}
	helpers := []translator.Candidate{
		{Text: "Mind is radiant. Its essence is void.", Confidence: 0.85, ModelID: "m2"},
		{Text: "The mind shines. Nature is emptiness.", Confidence: 0.9, ModelID: "m3"},
	}

	first, err := BuildSentenceConsensus(primary, helpers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := BuildSentenceConsensus(primary, helpers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("sentence consensus is not deterministic for identical inputs")
	}
}

func TestBuildWeightedConsensus_AllFiltered(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "low confidence", Confidence: 0.1, ModelID: "m1"},
		{Text: "", Confidence: 0.9, ModelID: "m2"},
	}

	_, err := BuildWeightedConsensus(context.Background(), candidates, LexicalScorer{})
	if !errors.Is(err, ErrNoValidCandidates) {
		t.Errorf("expected ErrNoValidCandidates, got %v", err)
	}
}

func TestBuildWeightedConsensus_SingleSurvivor(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "below threshold", Confidence: 0.2, ModelID: "m1"},
		{Text: "the only real candidate", Confidence: 0.85, ModelID: "m2"},
	}

	result, err := BuildWeightedConsensus(context.Background(), candidates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalTranslation != "the only real candidate" {
		t.Errorf("unexpected winner: %q", result.FinalTranslation)
	}
	if result.Confidence != 0.85 {
		t.Errorf("expected confidence passthrough 0.85, got %v", result.Confidence)
	}
	if result.AgreementScore != 1.0 {
		t.Errorf("expected agreement 1.0, got %v", result.AgreementScore)
	}
	if !reflect.DeepEqual(result.ContributingModels, []string{"m2"}) {
		t.Errorf("unexpected contributing models: %v", result.ContributingModels)
	}
}

func TestBuildWeightedConsensus_SingleSurvivorConfidenceCapped(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "overconfident", Confidence: 1.0, ModelID: "m1"},
	}

	result, err := BuildWeightedConsensus(context.Background(), candidates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != MaxConfidence {
		t.Errorf("expected confidence capped at %v, got %v", MaxConfidence, result.Confidence)
	}
}

func TestBuildWeightedConsensus_NilScorer(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "candidate one", Confidence: 0.8, ModelID: "m1"},
		{Text: "candidate two", Confidence: 0.9, ModelID: "m2"},
	}

	_, err := BuildWeightedConsensus(context.Background(), candidates, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildWeightedConsensus_HighestWeightWins(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "the mind is luminous", Confidence: 0.8, ModelID: "m1"},
		{Text: "the mind is luminous", Confidence: 0.9, ModelID: "m2"},
	}

	result, err := BuildWeightedConsensus(context.Background(), candidates, LexicalScorer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AgreementScore != 1.0 {
		t.Errorf("expected agreement 1.0 for identical texts, got %v", result.AgreementScore)
	}
	// Calibrate(0.9, 1.0) hits the ceiling.
	if result.Confidence != MaxConfidence {
		t.Errorf("expected confidence %v, got %v", MaxConfidence, result.Confidence)
	}
	if !reflect.DeepEqual(result.ContributingModels, []string{"m1", "m2"}) {
		t.Errorf("unexpected contributing models: %v", result.ContributingModels)
	}
}

func TestBuildWeightedConsensus_AgreementBoost(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "candidate alpha", Confidence: 0.6, ModelID: "m1"},
		{Text: "candidate beta", Confidence: 0.5, ModelID: "m2"},
	}

	result, err := BuildWeightedConsensus(context.Background(), candidates, stubScorer{score: 0.93})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalTranslation != "candidate alpha" {
		t.Errorf("expected higher-confidence winner, got %q", result.FinalTranslation)
	}
	// 0.6 + 0.15 boost for agreement above 0.9.
	if math.Abs(result.Confidence-0.75) > 1e-9 {
		t.Errorf("expected confidence 0.75, got %v", result.Confidence)
	}
}

func TestBuildWeightedConsensus_TieKeepsEarliest(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "first in order", Confidence: 0.8, ModelID: "m1"},
		{Text: "second in order", Confidence: 0.8, ModelID: "m2"},
	}

	result, err := BuildWeightedConsensus(context.Background(), candidates, stubScorer{score: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalTranslation != "first in order" {
		t.Errorf("expected earliest candidate on tie, got %q", result.FinalTranslation)
	}
}

func TestBuildWeightedConsensus_ScorerFailurePropagates(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "candidate one", Confidence: 0.8, ModelID: "m1"},
		{Text: "candidate two", Confidence: 0.9, ModelID: "m2"},
	}
	scoreErr := errors.New("embedding backend down")

	_, err := BuildWeightedConsensus(context.Background(), candidates, stubScorer{err: scoreErr})
	if !errors.Is(err, scoreErr) {
		t.Errorf("expected scorer error to propagate, got %v", err)
	}
}

func TestBuildWeightedConsensus_SourceCandidatesPreserved(t *testing.T) {
	candidates := []translator.Candidate{
		{Text: "kept", Confidence: 0.8, ModelID: "m1"},
		{Text: "filtered out", Confidence: 0.1, ModelID: "m2"},
	}

	result, err := BuildWeightedConsensus(context.Background(), candidates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.SourceCandidates) != 2 {
		t.Errorf("expected all input candidates recorded, got %d", len(result.SourceCandidates))
	}
}
