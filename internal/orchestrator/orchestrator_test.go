package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Garblesnarff/Translate-sub007/internal/consensus"
	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

type mockProvider struct {
	id            string
	translateFunc func(ctx context.Context, cfg translator.ProviderConfig, req translator.Request) (*translator.Candidate, error)
	callCount     atomic.Int32
}

func (m *mockProvider) ID() string { return m.id }

func (m *mockProvider) Translate(ctx context.Context, cfg translator.ProviderConfig, req translator.Request) (*translator.Candidate, error) {
	m.callCount.Add(1)
	if m.translateFunc != nil {
		return m.translateFunc(ctx, cfg, req)
	}
	return &translator.Candidate{
		Text:       "mock translation",
		Confidence: 0.8,
		ModelID:    m.id,
		ProviderID: m.id,
	}, nil
}

func (m *mockProvider) IsAvailable(ctx context.Context) error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestNew_Defaults(t *testing.T) {
	o := New([]translator.Provider{&mockProvider{id: "p1"}}, consensus.LexicalScorer{}, Config{})

	if o.config.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", o.config.Timeout)
	}
	if o.validator != nil {
		t.Error("expected no validator unless ValidateLanguage is set")
	}
}

func TestExecute_AllSucceed(t *testing.T) {
	providers := []translator.Provider{
		&mockProvider{id: "p1"},
		&mockProvider{id: "p2"},
		&mockProvider{id: "p3"},
	}
	o := New(providers, consensus.LexicalScorer{}, Config{Logger: quietLogger()})

	result := o.Execute(context.Background(), translator.ProviderConfig{}, translator.Request{
		Text:       "Hello",
		TargetLang: "en",
	})

	if len(result.Candidates) != 3 {
		t.Errorf("expected 3 candidates, got %d", len(result.Candidates))
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors, got %d", len(result.Errors))
	}
}

func TestExecute_FailureDoesNotCancelSiblings(t *testing.T) {
	failing := &mockProvider{
		id: "failing",
		translateFunc: func(context.Context, translator.ProviderConfig, translator.Request) (*translator.Candidate, error) {
			return nil, errors.New("backend down")
		},
	}
	slow := &mockProvider{
		id: "slow",
		translateFunc: func(ctx context.Context, cfg translator.ProviderConfig, req translator.Request) (*translator.Candidate, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
			return &translator.Candidate{Text: "slow but fine", Confidence: 0.8, ModelID: "slow"}, nil
		},
	}
	o := New([]translator.Provider{failing, slow}, consensus.LexicalScorer{}, Config{Logger: quietLogger()})

	result := o.Execute(context.Background(), translator.ProviderConfig{}, translator.Request{Text: "Hello"})

	if len(result.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(result.Candidates))
	}
	if result.Candidates[0].Text != "slow but fine" {
		t.Errorf("unexpected surviving candidate: %q", result.Candidates[0].Text)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(result.Errors))
	}
}

func TestExecute_NoRetry(t *testing.T) {
	failing := &mockProvider{
		id: "failing",
		translateFunc: func(context.Context, translator.ProviderConfig, translator.Request) (*translator.Candidate, error) {
			return nil, errors.New("backend down")
		},
	}
	o := New([]translator.Provider{failing}, consensus.LexicalScorer{}, Config{Logger: quietLogger()})

	o.Execute(context.Background(), translator.ProviderConfig{}, translator.Request{Text: "Hello"})

	if failing.callCount.Load() != 1 {
		t.Errorf("expected exactly 1 call per provider, got %d", failing.callCount.Load())
	}
}

func TestExecute_DeterministicOrdering(t *testing.T) {
	// The first provider finishes last; candidate order must still follow
	// provider position, not arrival order.
	slow := &mockProvider{
		id: "slow",
		translateFunc: func(ctx context.Context, cfg translator.ProviderConfig, req translator.Request) (*translator.Candidate, error) {
			time.Sleep(50 * time.Millisecond)
			return &translator.Candidate{Text: "from slow", Confidence: 0.8, ModelID: "slow"}, nil
		},
	}
	fast := &mockProvider{
		id: "fast",
		translateFunc: func(ctx context.Context, cfg translator.ProviderConfig, req translator.Request) (*translator.Candidate, error) {
			return &translator.Candidate{Text: "from fast", Confidence: 0.8, ModelID: "fast"}, nil
		},
	}
	o := New([]translator.Provider{slow, fast}, consensus.LexicalScorer{}, Config{Logger: quietLogger()})

	for i := 0; i < 5; i++ {
		result := o.Execute(context.Background(), translator.ProviderConfig{}, translator.Request{Text: "Hello"})
		if len(result.Candidates) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(result.Candidates))
		}
		if result.Candidates[0].Text != "from slow" || result.Candidates[1].Text != "from fast" {
			t.Fatalf("candidate order does not follow provider position: %q, %q",
				result.Candidates[0].Text, result.Candidates[1].Text)
		}
	}
}

func TestExecute_Timeout(t *testing.T) {
	hanging := &mockProvider{
		id: "hanging",
		translateFunc: func(ctx context.Context, cfg translator.ProviderConfig, req translator.Request) (*translator.Candidate, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return &translator.Candidate{Text: "too late", Confidence: 0.8}, nil
			}
		},
	}
	o := New([]translator.Provider{hanging}, consensus.LexicalScorer{}, Config{
		Timeout: 20 * time.Millisecond,
		Logger:  quietLogger(),
	})

	result := o.Execute(context.Background(), translator.ProviderConfig{}, translator.Request{Text: "Hello"})

	if len(result.Candidates) != 0 {
		t.Errorf("expected no candidates after timeout, got %d", len(result.Candidates))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 timeout error, got %d", len(result.Errors))
	}
}

func TestTranslateWithConsensus(t *testing.T) {
	providers := []translator.Provider{
		&mockProvider{
			id: "p1",
			translateFunc: func(context.Context, translator.ProviderConfig, translator.Request) (*translator.Candidate, error) {
				return &translator.Candidate{Text: "the mind is luminous", Confidence: 0.8, ModelID: "m1"}, nil
			},
		},
		&mockProvider{
			id: "p2",
			translateFunc: func(context.Context, translator.ProviderConfig, translator.Request) (*translator.Candidate, error) {
				return &translator.Candidate{Text: "the mind is luminous", Confidence: 0.9, ModelID: "m2"}, nil
			},
		},
	}
	o := New(providers, consensus.LexicalScorer{}, Config{Logger: quietLogger()})

	result, err := o.TranslateWithConsensus(context.Background(), translator.ProviderConfig{}, translator.Request{Text: "source"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalTranslation != "the mind is luminous" {
		t.Errorf("unexpected final translation: %q", result.FinalTranslation)
	}
	if result.AgreementScore != 1.0 {
		t.Errorf("expected agreement 1.0, got %v", result.AgreementScore)
	}
	if len(result.ContributingModels) != 2 {
		t.Errorf("expected 2 contributing models, got %v", result.ContributingModels)
	}
}

func TestTranslateWithConsensus_AllProvidersFailed(t *testing.T) {
	failing := func(context.Context, translator.ProviderConfig, translator.Request) (*translator.Candidate, error) {
		return nil, errors.New("backend down")
	}
	providers := []translator.Provider{
		&mockProvider{id: "p1", translateFunc: failing},
		&mockProvider{id: "p2", translateFunc: failing},
	}
	o := New(providers, consensus.LexicalScorer{}, Config{Logger: quietLogger()})

	_, err := o.TranslateWithConsensus(context.Background(), translator.ProviderConfig{}, translator.Request{Text: "Hello"})
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Errorf("expected ErrAllProvidersFailed, got %v", err)
	}
}
