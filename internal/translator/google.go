package translator

import (
	"context"
	"fmt"
	"os"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// googleConfidence is the fixed self-reported confidence for Google
// Translate, which returns no per-result score of its own.
const googleConfidence = 0.9

// GoogleProvider translates through the Google Cloud Translation API.
// Instructions and PreviousContext are ignored: the API takes no prompt.
type GoogleProvider struct{}

func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{}
}

func (p *GoogleProvider) ID() string {
	return "google"
}

func (p *GoogleProvider) Translate(ctx context.Context, cfg ProviderConfig, req Request) (*Candidate, error) {
	start := time.Now()

	if cfg.Credentials != "" {
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.Credentials)
	}

	targetLangTag, err := language.Parse(req.TargetLang)
	if err != nil {
		return nil, fmt.Errorf("invalid target language: %w", err)
	}

	opts := []option.ClientOption{}
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	var translations []translate.Translation
	if req.SourceLang == "" || req.SourceLang == "auto" {
		translations, err = client.Translate(ctx, []string{req.Text}, targetLangTag, nil)
	} else {
		sourceLangTag, _ := language.Parse(req.SourceLang)
		translations, err = client.Translate(ctx, []string{req.Text}, targetLangTag, &translate.Options{
			Source: sourceLangTag,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}
	if len(translations) == 0 {
		return nil, fmt.Errorf("no translation returned")
	}

	return &Candidate{
		Text:       translations[0].Text,
		Confidence: googleConfidence,
		ModelID:    "nmt",
		ProviderID: "google",
		Latency:    time.Since(start),
	}, nil
}

func (p *GoogleProvider) IsAvailable(ctx context.Context) error {
	return nil
}
