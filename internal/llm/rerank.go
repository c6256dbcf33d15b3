package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPReranker implements core.RerankService against a cross-encoder
// served over HTTP (e.g. a sentence-transformers model behind a small
// scoring endpoint). When no rerank URL is configured the retriever
// runs without it and keeps similarity order.
type HTTPReranker struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPReranker(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPReranker {
	return &HTTPReranker{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type rerankRequest struct {
	Query string `json:"query"`
	Text  string `json:"text"`
}

type rerankResponse struct {
	Score float64 `json:"score"`
}

func (r *HTTPReranker) Score(ctx context.Context, query, chunkText string) (float64, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Text: chunkText})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rerank endpoint returned status %d", resp.StatusCode)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	return parsed.Score, nil
}
