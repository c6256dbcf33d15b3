// Ports consumed by the core. Implementations live under internal/llm,
// internal/vectordb, internal/templates and internal/store; tests
// substitute in-memory fakes.
package core

import "context"

// EmbeddingService generates a vector embedding for a piece of text.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore answers similarity queries over indexed document chunks.
// The filter is applied at query time, before ranking.
type VectorStore interface {
	Query(ctx context.Context, vector []float32, topK int, filter *ChunkFilter) ([]ScoredChunk, error)
}

// RerankService scores a (query, chunk text) pair with a cross-encoder.
// Higher is more relevant.
type RerankService interface {
	Score(ctx context.Context, query, chunkText string) (float64, error)
}

// GenerationService completes a prompt with the model backend. Backend
// errors and timeouts are surfaced as ErrGenerationUnavailable.
type GenerationService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TemplateRepository supplies read-only form templates.
type TemplateRepository interface {
	// Get returns the named template or ErrTemplateNotFound.
	Get(name string) (*FormTemplate, error)
	// List returns all templates in a stable order.
	List() []*FormTemplate
}

// ConversationRepository persists Conversation aggregates.
type ConversationRepository interface {
	// Load returns the conversation or nil when the id is unknown.
	Load(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, id string) error
}
