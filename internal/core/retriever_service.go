package core

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

type RetrieverConfig struct {
	// Oversample multiplies topK for the first-stage vector query so the
	// reranker has a wider candidate set to reorder.
	Oversample int
	// SimilarityThreshold drops first-stage candidates below this score.
	SimilarityThreshold float64
}

// Retriever runs the two-stage pipeline: vector similarity search over
// an oversampled candidate set, cross-encoder rerank, stable sort,
// dedup by article identity, truncate to topK. An empty result is a
// valid outcome, never an error.
type Retriever struct {
	embedder EmbeddingService
	store    VectorStore
	reranker RerankService
	cfg      RetrieverConfig
	logger   *zap.Logger
}

func NewRetriever(embedder EmbeddingService, store VectorStore, reranker RerankService, cfg RetrieverConfig, logger *zap.Logger) *Retriever {
	if cfg.Oversample <= 0 {
		cfg.Oversample = 3
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		reranker: reranker,
		cfg:      cfg,
		logger:   logger,
	}
}

func (r *Retriever) Search(ctx context.Context, query string, topK int, filter *ChunkFilter) ([]RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", ErrRetrievalUnavailable, err)
	}

	candidates, err := r.store.Query(ctx, vector, topK*r.cfg.Oversample, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", ErrRetrievalUnavailable, err)
	}

	results := make([]RetrievalResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity < r.cfg.SimilarityThreshold {
			continue
		}
		results = append(results, RetrievalResult{Chunk: c.Chunk, Score: c.Similarity})
	}
	if len(results) == 0 {
		return nil, nil
	}

	r.rerank(ctx, query, results)

	// Candidates arrive in similarity order, so the stable sort keeps
	// the original similarity rank as the tie-break for equal rerank
	// scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RerankScore > results[j].RerankScore
	})

	results = dedupeByArticle(results)
	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	r.logger.Debug("retrieval complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(results)))
	return results, nil
}

// rerank scores every candidate with the cross-encoder. If the reranker
// is absent or a call fails, the similarity score stands in so ordering
// degrades to the first-stage ranking instead of failing the query.
func (r *Retriever) rerank(ctx context.Context, query string, results []RetrievalResult) {
	if r.reranker == nil {
		for i := range results {
			results[i].RerankScore = results[i].Score
		}
		return
	}

	for i := range results {
		text := results[i].Chunk.Content
		if title := results[i].Chunk.Metadata.ChunkTitle; title != "" {
			text = title + ": " + text
		}
		score, err := r.reranker.Score(ctx, query, text)
		if err != nil {
			r.logger.Warn("rerank failed, keeping similarity order",
				zap.String("chunk_id", results[i].Chunk.ID),
				zap.Error(err))
			// Mixed score scales would be meaningless; fall back wholesale.
			for j := 0; j < len(results); j++ {
				results[j].RerankScore = results[j].Score
			}
			return
		}
		results[i].RerankScore = score
	}
}

// dedupeByArticle keeps the highest-scoring chunk per legal article.
// The input is already sorted best-first, so the first occurrence wins.
func dedupeByArticle(results []RetrievalResult) []RetrievalResult {
	seen := make(map[string]bool, len(results))
	out := results[:0]
	for _, res := range results {
		key := res.Chunk.ArticleKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, res)
	}
	return out
}

// CitationsFromResults shapes retrieval results into the citation
// summaries attached to a ChatResponse.
func CitationsFromResults(results []RetrievalResult) []Citation {
	if len(results) == 0 {
		return nil
	}
	citations := make([]Citation, 0, len(results))
	for _, res := range results {
		citations = append(citations, Citation{
			DocumentType:   res.Chunk.Metadata.DocumentType,
			DocumentNumber: res.Chunk.Metadata.DocumentNumber,
			ArticleCode:    res.Chunk.Metadata.ArticleCode,
			Title:          res.Chunk.Metadata.ChunkTitle,
			Score:          res.RerankScore,
		})
	}
	return citations
}
