package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Garblesnarff/Translate-sub007/internal/postprocess"
)

var DefaultOllamaModels = []string{
	"llama3.2",
	"gemma2:2b",
	"qwen2.5:3b",
	"mistral:7b",
}

// defaultLLMConfidence is used when a model does not self-report one.
const defaultLLMConfidence = 0.7

// OllamaProvider translates through a self-hosted Ollama instance. One
// provider instance is bound to one model so that parallel fan-out across
// several models yields independently attributable candidates.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModels[0]
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OllamaProvider) ID() string {
	return "ollama:" + p.model
}

func (p *OllamaProvider) Translate(ctx context.Context, cfg ProviderConfig, req Request) (*Candidate, error) {
	start := time.Now()

	model := cfg.Model
	if model == "" {
		model = p.model
	}

	ollamaReq := map[string]interface{}{
		"model":  model,
		"prompt": buildLLMPrompt(req),
		"stream": false,
		"format": "json",
	}

	jsonData, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", p.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var ollamaResp struct {
		Response  string `json:"response"`
		EvalCount int    `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	cand := parseLLMCandidate(ollamaResp.Response)
	cand.ModelID = model
	cand.ProviderID = "ollama"
	cand.TokensUsed = ollamaResp.EvalCount
	cand.Latency = time.Since(start)

	if cand.Text == "" {
		return nil, fmt.Errorf("ollama %s returned an empty translation", model)
	}
	return cand, nil
}

func (p *OllamaProvider) IsAvailable(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/api/tags", p.baseURL), nil)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// buildLLMPrompt renders the shared prompt used by LLM-backed providers.
// The model is asked for a JSON object so the self-reported confidence can
// be recovered alongside the translation.
func buildLLMPrompt(req Request) string {
	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "the detected language"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate the following text from %s to %s.\n", sourceLang, req.TargetLang)
	if req.Instructions != "" {
		sb.WriteString(req.Instructions)
		sb.WriteString("\n")
	}
	if req.PreviousContext != "" {
		fmt.Fprintf(&sb, "Preceding translated context (for continuity, do not repeat): %s\n", req.PreviousContext)
	}
	sb.WriteString(`Respond ONLY with JSON:
{
  "translation": "...",
  "confidence": 0.0-1.0,
  "reasoning": "one short sentence"
}

Text: `)
	sb.WriteString(fmt.Sprintf("%q", req.Text))
	return sb.String()
}

// parseLLMCandidate decodes the JSON object requested by buildLLMPrompt.
// Models occasionally ignore the format instruction; in that case the raw
// (cleaned) output is taken as the translation with the default confidence.
func parseLLMCandidate(raw string) *Candidate {
	raw = strings.TrimSpace(raw)

	var parsed struct {
		Translation string  `json:"translation"`
		Confidence  float64 `json:"confidence"`
		Reasoning   string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Translation == "" {
		return &Candidate{
			Text:       postprocess.Clean(raw),
			Confidence: defaultLLMConfidence,
		}
	}

	conf := parsed.Confidence
	if conf <= 0 || conf > 1 || math.IsNaN(conf) {
		conf = defaultLLMConfidence
	}

	return &Candidate{
		Text:       postprocess.Clean(parsed.Translation),
		Confidence: conf,
		Reasoning:  parsed.Reasoning,
	}
}
