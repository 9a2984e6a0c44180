package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const embeddingTimeout = 60 * time.Second

// OllamaVectorizer fetches embeddings from an Ollama-compatible
// /api/embeddings endpoint. Selected via the semantic.provider config.
type OllamaVectorizer struct {
	url    string
	model  string
	client *http.Client
}

// NewOllamaVectorizer creates a remote vectorizer against the given
// endpoint and model.
func NewOllamaVectorizer(url, model string) *OllamaVectorizer {
	return &OllamaVectorizer{
		url:    url,
		model:  model,
		client: &http.Client{Timeout: embeddingTimeout},
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Vector embeds a single phrase. Failures surface as errors; the engine
// drops the affected phrase from similarity comparison.
func (o *OllamaVectorizer) Vector(text string) ([]float64, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding API returned %d: %s", resp.StatusCode, msg)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	return out.Embedding, nil
}
