package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Qdrant implements VectorStore over the Qdrant HTTP API.
type Qdrant struct {
	BaseURL    string
	Collection string
	Client     *http.Client
}

func NewQdrant(baseURL, collection string) *Qdrant {
	if collection == "" {
		collection = "translation_memory"
	}
	return &Qdrant{
		BaseURL:    baseURL,
		Collection: collection,
		Client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (q *Qdrant) EnsureCollection(ctx context.Context, dim int) error {
	if q.BaseURL == "" {
		return errors.New("qdrant url not configured")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", q.BaseURL, q.Collection), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.Client.Do(req)
	if err != nil {
		return err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	// 409 means the collection already exists; that is fine.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	return fmt.Errorf("qdrant collection create failed with status %d", resp.StatusCode)
}

func (q *Qdrant) Upsert(ctx context.Context, id string, vector []float64, sourceText, finalText string) error {
	if q.BaseURL == "" {
		return errors.New("qdrant url not configured")
	}
	payload := map[string]any{
		"points": []map[string]any{
			{
				"id":     id,
				"vector": vector,
				"payload": map[string]any{
					"source_text": sourceText,
					"final_text":  finalText,
				},
			},
		},
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", q.BaseURL, q.Collection), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert failed with status %d", resp.StatusCode)
	}
	return nil
}

func (q *Qdrant) Search(ctx context.Context, vector []float64, limit int) ([]Hit, error) {
	if q.BaseURL == "" {
		return nil, errors.New("qdrant url not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	payload := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", q.BaseURL, q.Collection), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search failed with status %d", resp.StatusCode)
	}

	var decoded struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float64 `json:"score"`
			Payload struct {
				SourceText string `json:"source_text"`
				FinalText  string `json:"final_text"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(decoded.Result))
	for _, r := range decoded.Result {
		hits = append(hits, Hit{
			ID:         fmt.Sprint(r.ID),
			Score:      r.Score,
			SourceText: r.Payload.SourceText,
			FinalText:  r.Payload.FinalText,
		})
	}
	return hits, nil
}
