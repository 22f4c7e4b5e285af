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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Garblesnarff/Translate-sub007/internal/consensus"
	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

var (
	fuseInput     string
	fuseOutput    string
	fuseStrategy  string
	fuseLexical   bool
	fuseEmbedder  string
	fuseOllamaURL string
	fuseOpenAIKey string
)

var fuseCmd = &cobra.Command{
	Use:   "fuse",
	Short: "Fuse pre-collected candidate translations into one consensus answer",
	Long: `Fuse candidate translations collected outside a live provider run.

The input is a JSON array of candidate records, for example rows exported
from the store or dumps produced by another tool. Each record must carry
text, confidence, model_id, and provider_id; records are schema-validated
before they enter the consensus engine, and the first invalid record fails
the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(fuseInput)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		var records []map[string]any
		if err := json.Unmarshal(raw, &records); err != nil {
			return fmt.Errorf("failed to parse candidate records: %w", err)
		}

		var scorer consensus.Scorer = consensus.LexicalScorer{}
		if !fuseLexical {
			embedder, err := buildEmbedder(fuseEmbedder, fuseOllamaURL, fuseOpenAIKey)
			if err != nil {
				return err
			}
			scorer = consensus.SemanticScorer{Embedder: embedder}
		}

		result, err := fuseCandidates(context.Background(), records, fuseStrategy, scorer)
		if err != nil {
			return err
		}

		if fuseOutput != "" {
			if err := os.MkdirAll(filepath.Dir(fuseOutput), 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := os.WriteFile(fuseOutput, []byte(result.FinalTranslation), 0644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
		} else {
			fmt.Println(result.FinalTranslation)
		}

		fmt.Fprintf(os.Stderr, "Confidence: %.3f  Agreement: %.3f\n", result.Confidence, result.AgreementScore)
		fmt.Fprintf(os.Stderr, "Contributing models: %s\n", strings.Join(result.ContributingModels, ", "))
		return nil
	},
}

// fuseCandidates validates untyped candidate records and applies the selected
// consensus strategy. The sentence strategy treats the first record as the
// primary translation and the rest as corroborating helpers.
func fuseCandidates(ctx context.Context, records []map[string]any, strategy string, scorer consensus.Scorer) (*consensus.Result, error) {
	candidates, err := translator.ParseCandidates(records)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, consensus.ErrNoValidCandidates
	}

	if strategy == "sentence" {
		return consensus.BuildSentenceConsensus(candidates[0], candidates[1:])
	}
	return consensus.BuildWeightedConsensus(ctx, candidates, scorer)
}

func init() {
	rootCmd.AddCommand(fuseCmd)

	fuseCmd.Flags().StringVarP(&fuseInput, "input", "i", "", "JSON file with an array of candidate records (required)")
	fuseCmd.Flags().StringVarP(&fuseOutput, "output", "o", "", "Output file for the fused translation (stdout if empty)")
	fuseCmd.Flags().StringVar(&fuseStrategy, "strategy", "weighted", "Consensus strategy: weighted or sentence")
	fuseCmd.Flags().BoolVar(&fuseLexical, "lexical-agreement", false, "Score agreement lexically instead of semantically")
	fuseCmd.Flags().StringVar(&fuseEmbedder, "embedder", "noop", "Embedding backend for semantic agreement: noop, ollama, openai")
	fuseCmd.Flags().StringVar(&fuseOllamaURL, "ollama-url", "http://localhost:11434", "Ollama base URL (for --embedder ollama)")
	fuseCmd.Flags().StringVar(&fuseOpenAIKey, "openai-key", "", "OpenAI API key (for --embedder openai)")

	fuseCmd.MarkFlagRequired("input")
}
