/*
Copyright © 2025 The Translate-sub007 Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Garblesnarff/Translate-sub007/internal"
	"github.com/Garblesnarff/Translate-sub007/internal/chunker"
	"github.com/Garblesnarff/Translate-sub007/internal/consensus"
	"github.com/Garblesnarff/Translate-sub007/internal/detector"
	"github.com/Garblesnarff/Translate-sub007/internal/markdown"
	"github.com/Garblesnarff/Translate-sub007/internal/memory"
	"github.com/Garblesnarff/Translate-sub007/internal/orchestrator"
	"github.com/Garblesnarff/Translate-sub007/internal/placeholder"
	"github.com/Garblesnarff/Translate-sub007/internal/store"
	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

var (
	inputFile   string
	outputFile  string
	sourceLang  string
	targetLang  string
	credentials string
	projectID   string

	providerNames []string
	strategy      string
	instructions  string

	ollamaURL        string
	ollamaModels     []string
	openrouterKey    string
	openrouterModels []string

	embedderName string
	openaiKey    string
	lexicalOnly  bool

	tmURL        string
	tmCollection string

	dbPath     string
	noCache    bool
	maxRetries int

	chunkSize     int
	stripMarkdown bool
	validateLang  bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate text using multiple AI providers with consensus",
	Long: `Translate text by querying multiple AI translation providers in parallel
and fusing their candidates into one answer with a calibrated confidence.

Available providers:
  - google      Google Cloud Translation (requires credentials)
  - ollama      Ollama LLM models (self-hosted, one candidate per model)
  - openrouter  OpenRouter LLM models (requires API key)

Consensus strategies:
  - weighted    confidence-weighted selection over semantic agreement (default)
  - sentence    first provider is primary; the rest corroborate per sentence`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		raw, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		text := string(raw)
		if stripMarkdown {
			text = markdown.ToPlainText(raw)
		}

		ctx := context.Background()

		// Auto-detect source language when not specified.
		if sourceLang == "auto" {
			det := detector.New()
			if detected, ok := det.DetectISO(text); ok {
				sourceLang = strings.ToLower(detected)
				fmt.Fprintf(os.Stderr, "Detected source language: %s\n", sourceLang)
			}
		}

		var db *store.Store
		if !noCache && dbPath != "" {
			db, err = store.New(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if cached, found, cacheErr := db.GetCachedTranslation(ctx, text, sourceLang, targetLang); cacheErr == nil && found {
				fmt.Fprintf(os.Stderr, "Using cached translation\n")
				return writeOutput(cached, "(from cache)")
			}
		}

		embedder, err := buildEmbedder(embedderName, ollamaURL, openaiKey)
		if err != nil {
			return err
		}

		// Vector translation memory: reuse a previous consensus for
		// near-identical sources before calling any provider.
		var tm *memory.TranslationMemory
		if tmURL != "" {
			tm = memory.New(embedder, memory.NewQdrant(tmURL, tmCollection), 0)
			if err := tm.Init(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Translation memory unavailable: %v\n", err)
				tm = nil
			} else if final, score, ok, err := tm.Lookup(ctx, text); err == nil && ok {
				fmt.Fprintf(os.Stderr, "Translation memory hit (similarity %.3f)\n", score)
				return writeOutput(final, "(from translation memory)")
			}
		}

		providers, err := buildProviders(providerNames, ollamaURL, ollamaModels, openrouterKey, openrouterModels, maxRetries, time.Second)
		if err != nil {
			return err
		}

		var scorer consensus.Scorer = consensus.SemanticScorer{Embedder: embedder}
		if lexicalOnly {
			scorer = consensus.LexicalScorer{}
		}

		orch := orchestrator.New(providers, scorer, orchestrator.Config{
			Timeout:          30 * time.Second,
			ValidateLanguage: validateLang,
		})

		cfg := translator.ProviderConfig{
			Credentials: credentials,
			ProjectID:   projectID,
		}

		chunks := chunker.Chunk(text, chunkSize)
		var (
			finalParts    []string
			allCandidates []translator.Candidate
			confidenceSum float64
			agreementSum  float64
			models        []string
		)

		for i, chunk := range chunks {
			if len(chunks) > 1 {
				fmt.Fprintf(os.Stderr, "Translating chunk %d/%d...\n", i+1, len(chunks))
			}

			protected, markers := placeholder.Protect(chunk)
			req := translator.Request{
				Text:         protected,
				SourceLang:   sourceLang,
				TargetLang:   targetLang,
				Instructions: buildInstructions(markers),
			}
			if len(finalParts) > 0 {
				req.PreviousContext = chunker.ExtractContext(strings.Join(finalParts, " "), 0)
			}

			result, err := runConsensus(ctx, orch, cfg, req)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}

			finalParts = append(finalParts, placeholder.Restore(result.FinalTranslation, markers))
			allCandidates = append(allCandidates, result.SourceCandidates...)
			confidenceSum += result.Confidence
			agreementSum += result.AgreementScore
			models = result.ContributingModels
		}

		finalText := strings.Join(finalParts, "\n\n")
		confidence := confidenceSum / float64(len(chunks))
		agreement := agreementSum / float64(len(chunks))

		if db != nil && !noCache {
			reqID := uuid.New().String()
			_ = db.SaveRequest(ctx, internal.TranslationRequest{
				ID:         reqID,
				SourceText: text,
				SourceLang: sourceLang,
				TargetLang: targetLang,
				Timestamp:  time.Now(),
			})
			for _, c := range allCandidates {
				_ = db.SaveCandidate(ctx, reqID, c)
			}
			_ = db.SaveConsensus(ctx, reqID, &consensus.Result{
				FinalTranslation:   finalText,
				Confidence:         confidence,
				AgreementScore:     agreement,
				ContributingModels: models,
			})
			_ = db.SaveToMemory(ctx, text, sourceLang, targetLang, finalText, confidence, strings.Join(models, ","))
		}

		if tm != nil {
			if err := tm.Store(ctx, text, finalText); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to store in translation memory: %v\n", err)
			}
		}

		if err := writeOutput(finalText, ""); err != nil {
			return err
		}
		fmt.Printf("Confidence: %.3f  Agreement: %.3f\n", confidence, agreement)
		fmt.Printf("Contributing models: %s\n", strings.Join(models, ", "))
		return nil
	},
}

// runConsensus executes one fan-out and applies the selected strategy.
func runConsensus(ctx context.Context, orch *orchestrator.Orchestrator, cfg translator.ProviderConfig, req translator.Request) (*consensus.Result, error) {
	if strategy != "sentence" {
		return orch.TranslateWithConsensus(ctx, cfg, req)
	}

	fanout := orch.Execute(ctx, cfg, req)
	if len(fanout.Candidates) == 0 {
		return nil, fmt.Errorf("%w: %d errors", orchestrator.ErrAllProvidersFailed, len(fanout.Errors))
	}
	return consensus.BuildSentenceConsensus(fanout.Candidates[0], fanout.Candidates[1:])
}

func buildInstructions(markers []string) string {
	parts := []string{}
	if instructions != "" {
		parts = append(parts, instructions)
	}
	if len(markers) > 0 {
		parts = append(parts, placeholder.InstructionHint())
	}
	parts = append(parts, "Keep key original-language terms in parentheses immediately after their translation.")
	return strings.Join(parts, " ")
}

func writeOutput(text, note string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if note != "" {
		fmt.Printf("Successfully translated %s to %s %s\n", sourceLang, targetLang, note)
	} else {
		fmt.Printf("Successfully translated %s to %s\n", sourceLang, targetLang)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for translation (required)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language code")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (required)")
	translateCmd.Flags().StringVarP(&credentials, "credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().StringVarP(&projectID, "project", "p", "", "Google Cloud Project ID")

	translateCmd.Flags().StringSliceVar(&providerNames, "providers", []string{"ollama"}, "Translation providers to use (comma-separated)")
	translateCmd.Flags().StringVar(&strategy, "strategy", "weighted", "Consensus strategy: weighted or sentence")
	translateCmd.Flags().StringVar(&instructions, "instructions", "", "Extra translation instructions passed to LLM providers")

	translateCmd.Flags().StringVar(&ollamaURL, "ollama-url", "http://localhost:11434", "Ollama base URL")
	translateCmd.Flags().StringSliceVar(&ollamaModels, "ollama-models", nil, "Ollama models to fan out to (default list used if empty)")
	translateCmd.Flags().StringVar(&openrouterKey, "openrouter-key", "", "OpenRouter API key")
	translateCmd.Flags().StringSliceVar(&openrouterModels, "openrouter-models", nil, "OpenRouter models to fan out to (default list used if empty)")

	translateCmd.Flags().StringVar(&embedderName, "embedder", "noop", "Embedding backend for semantic agreement: noop, ollama, openai")
	translateCmd.Flags().StringVar(&openaiKey, "openai-key", "", "OpenAI API key (for --embedder openai)")
	translateCmd.Flags().BoolVar(&lexicalOnly, "lexical-agreement", false, "Score whole-text agreement lexically instead of semantically")

	translateCmd.Flags().StringVar(&tmURL, "tm-url", "", "Qdrant URL for the vector translation memory (disabled if empty)")
	translateCmd.Flags().StringVar(&tmCollection, "tm-collection", "", "Qdrant collection name")

	translateCmd.Flags().StringVar(&dbPath, "db", "./data/tsub.db", "Database path for the translation store")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the translation memory cache")
	translateCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Total attempts per provider including the first (1 = no retries)")

	translateCmd.Flags().IntVar(&chunkSize, "chunk-size", 4000, "Maximum characters per translation chunk (0 = unlimited)")
	translateCmd.Flags().BoolVar(&stripMarkdown, "strip-markdown", false, "Convert markdown input to plain text before translating")
	translateCmd.Flags().BoolVar(&validateLang, "validate", false, "Drop candidates that are not in the target language")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
	translateCmd.MarkFlagRequired("target")
}
