package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Ollama calls a self-hosted Ollama instance's embeddings endpoint.
type Ollama struct {
	BaseURL string
	Model   string
	DimVal  int
	Client  *http.Client
}

func NewOllama(baseURL, model string, dim int) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if dim <= 0 {
		dim = 768
	}
	return &Ollama{
		BaseURL: baseURL,
		Model:   model,
		DimVal:  dim,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *Ollama) Name() string {
	return "ollama"
}

func (o *Ollama) Dim() int {
	return o.DimVal
}

func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		payload := map[string]any{
			"model":  o.Model,
			"prompt": text,
		}
		body, _ := json.Marshal(payload)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.Client.Do(req)
		if err != nil {
			return nil, err
		}
		var decoded struct {
			Embedding []float64 `json:"embedding"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama embedding request failed with status %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, decodeErr
		}
		if len(decoded.Embedding) == 0 {
			return nil, fmt.Errorf("ollama returned an empty embedding for %q", o.Model)
		}
		out = append(out, decoded.Embedding)
	}
	return out, nil
}
