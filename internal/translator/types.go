// Package translator defines the provider gateway: the uniform capability
// each AI translation backend exposes to the rest of the application.
package translator

import (
	"context"
	"time"
)

// ProviderConfig carries per-call credentials and overrides shared by all
// provider implementations. Zero values mean "use the provider's defaults".
type ProviderConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

// Request is one translation request handed to a provider.
// Instructions carries the translation prompt; PreviousContext is a
// sliding-window snippet of already-translated text for continuity across
// chunks (LLM providers only).
type Request struct {
	Text            string `json:"text"`
	SourceLang      string `json:"source_lang"`
	TargetLang      string `json:"target_lang"`
	Instructions    string `json:"instructions,omitempty"`
	PreviousContext string `json:"previous_context,omitempty"`
}

// Candidate is one provider's output for one translation request.
// Text may embed original-language spans in parentheses immediately after
// the corresponding clause. Candidates are immutable once returned.
type Candidate struct {
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	ModelID    string        `json:"model_id"`
	ProviderID string        `json:"provider_id"`
	Reasoning  string        `json:"reasoning,omitempty"`
	TokensUsed int           `json:"tokens_used,omitempty"`
	Latency    time.Duration `json:"latency,omitempty"`
}

// Provider is the gateway contract implemented by each translation backend.
// Translate returns a candidate or an error, never both. Retry policy, if
// any, belongs to the provider side of this contract (see WithRetry), not
// to callers.
type Provider interface {
	ID() string
	Translate(ctx context.Context, cfg ProviderConfig, req Request) (*Candidate, error)
	IsAvailable(ctx context.Context) error
}
