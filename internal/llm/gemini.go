// Package llm contains the model backend clients: Gemini for
// generation and embeddings, and an HTTP cross-encoder for reranking.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

const systemInstruction = "Bạn là trợ lý tư vấn đăng ký kinh doanh tại Việt Nam. " +
	"Trả lời chính xác, ngắn gọn và chỉ dựa trên thông tin được cung cấp. " +
	"Nếu không đủ thông tin, hãy nói rõ thay vì suy đoán."

// GeminiClient implements core.GenerationService and
// core.EmbeddingService over the Gemini API. Every call is bounded by
// the configured timeout; errors and timeouts surface as
// core.ErrGenerationUnavailable so the orchestrator can degrade instead
// of failing the request.
type GeminiClient struct {
	client     *genai.Client
	chatModel  string
	embedModel string
	timeout    time.Duration
	logger     *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, chatModel, embedModel string, timeout time.Duration, logger *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

func (c *GeminiClient) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.Warn("error closing GenAI client", zap.Error(err))
		}
	}
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.chatModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %v", core.ErrGenerationUnavailable, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", core.ErrGenerationUnavailable)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: gemini returned a non-text response", core.ErrGenerationUnavailable)
	}
	return b.String(), nil
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	em := c.client.EmbeddingModel(c.embedModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}
