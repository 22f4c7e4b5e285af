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
	"fmt"
	"os"
	"time"

	"github.com/Garblesnarff/Translate-sub007/internal/embedding"
	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

// buildProviders constructs the provider fan-out list from CLI parameters.
// LLM backends contribute one provider per model so each model's candidate
// is independently attributable. Retries are wrapped onto every provider;
// the orchestrator itself never retries.
func buildProviders(providerNames []string, ollamaBaseURL string, ollamaModels []string, openrouterAPIKey string, openrouterModels []string, maxAttempts int, retryDelay time.Duration) ([]translator.Provider, error) {
	if len(ollamaModels) == 0 {
		ollamaModels = translator.DefaultOllamaModels
	}
	if len(openrouterModels) == 0 {
		openrouterModels = translator.DefaultOpenRouterModels
	}

	var list []translator.Provider

	for _, name := range providerNames {
		switch name {
		case "google":
			list = append(list, translator.NewGoogleProvider())
		case "ollama":
			for _, model := range ollamaModels {
				list = append(list, translator.NewOllamaProvider(ollamaBaseURL, model))
			}
		case "openrouter":
			for _, model := range openrouterModels {
				list = append(list, translator.NewOpenRouterProvider(openrouterAPIKey, "", model))
			}
		default:
			fmt.Fprintf(os.Stderr, "Unknown provider: %s, skipping\n", name)
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no valid providers configured")
	}

	for i, p := range list {
		list[i] = translator.WithRetry(p, maxAttempts, retryDelay)
	}
	return list, nil
}

// buildEmbedder constructs the embedding gateway named by the CLI. The noop
// embedder is fully offline and deterministic.
func buildEmbedder(name, ollamaBaseURL, openaiKey string) (embedding.Embedder, error) {
	switch name {
	case "noop", "":
		return embedding.NewNoop(0), nil
	case "ollama":
		return embedding.NewOllama(ollamaBaseURL, "", 0), nil
	case "openai":
		return embedding.NewOpenAI(openaiKey, "", 0), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", name)
	}
}
