// Package orchestrator fans translation requests out to every configured
// provider in parallel and feeds the surviving candidates to the consensus
// selector.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Garblesnarff/Translate-sub007/internal/consensus"
	"github.com/Garblesnarff/Translate-sub007/internal/translator"
	"github.com/Garblesnarff/Translate-sub007/internal/validator"
)

// ErrAllProvidersFailed means no provider produced a usable candidate.
var ErrAllProvidersFailed = errors.New("all translation providers failed")

type Config struct {
	// Timeout bounds each individual provider call. Zero means 30s.
	Timeout time.Duration

	// ValidateLanguage drops candidates whose text is not in the target
	// language (same log-and-drop handling as a provider failure).
	ValidateLanguage bool

	// Logger receives one line per dropped candidate. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// FanoutResult collects the outcome of one parallel fan-out. Candidates are
// ordered by provider position, never by arrival order.
type FanoutResult struct {
	Candidates []translator.Candidate
	Errors     []error
}

type Orchestrator struct {
	providers []translator.Provider
	scorer    consensus.Scorer
	config    Config
	validator *validator.Validator
	logger    *slog.Logger
}

// New creates an Orchestrator over the given providers. scorer computes the
// global agreement for the weighted consensus; it is required as soon as
// more than one candidate can survive.
func New(providers []translator.Provider, scorer consensus.Scorer, config Config) *Orchestrator {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		providers: providers,
		scorer:    scorer,
		config:    config,
		logger:    logger,
	}
	if config.ValidateLanguage {
		// The language detector is expensive to build; do it once here.
		o.validator = validator.New()
	}
	return o
}

// Execute calls every provider concurrently with settle-all semantics: each
// call resolves to a candidate or fails independently, and a failure never
// cancels a sibling call. Failures are logged and dropped; retry, if any,
// happens inside the provider (translator.WithRetry).
func (o *Orchestrator) Execute(ctx context.Context, cfg translator.ProviderConfig, req translator.Request) *FanoutResult {
	type outcome struct {
		index int
		cand  *translator.Candidate
		err   error
	}

	outcomes := make(chan outcome, len(o.providers))

	var wg sync.WaitGroup
	for i, p := range o.providers {
		wg.Add(1)
		go func(index int, provider translator.Provider) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
			defer cancel()

			cand, err := provider.Translate(callCtx, cfg, req)
			outcomes <- outcome{index: index, cand: cand, err: err}
		}(i, p)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Key results by provider position so the candidate list is
	// deterministic regardless of arrival order.
	byProvider := make([]*translator.Candidate, len(o.providers))
	result := &FanoutResult{}
	for oc := range outcomes {
		if oc.err != nil {
			o.logger.Warn("translation provider failed",
				"provider", o.providers[oc.index].ID(),
				"error", oc.err)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", o.providers[oc.index].ID(), oc.err))
			continue
		}
		byProvider[oc.index] = oc.cand
	}

	for i, cand := range byProvider {
		if cand == nil {
			continue
		}
		if o.validator != nil {
			if ok, err := o.validator.IsValid(cand.Text, req.TargetLang); !ok {
				o.logger.Warn("candidate dropped by language validation",
					"provider", o.providers[i].ID(),
					"error", err)
				result.Errors = append(result.Errors, fmt.Errorf("%s: %v", o.providers[i].ID(), err))
				continue
			}
		}
		result.Candidates = append(result.Candidates, *cand)
	}

	return result
}

// TranslateWithConsensus is the orchestration entry point: parallel fan-out
// followed by whole-text weighted consensus over the surviving candidates.
func (o *Orchestrator) TranslateWithConsensus(ctx context.Context, cfg translator.ProviderConfig, req translator.Request) (*consensus.Result, error) {
	fanout := o.Execute(ctx, cfg, req)
	if len(fanout.Candidates) == 0 {
		return nil, fmt.Errorf("%w: %d providers, %d errors", ErrAllProvidersFailed, len(o.providers), len(fanout.Errors))
	}
	return consensus.BuildWeightedConsensus(ctx, fanout.Candidates, o.scorer)
}
