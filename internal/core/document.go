package core

import "strings"

// ChunkMetadata carries the citation metadata attached to an indexed
// span of legal text. Produced by the ingestion pipeline; read-only here.
type ChunkMetadata struct {
	DocumentType   string `json:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	DocumentTitle  string `json:"document_title,omitempty"`
	IssuingAgency  string `json:"issuing_agency,omitempty"`
	IssueDate      string `json:"issue_date,omitempty"`
	EffectiveDate  string `json:"effective_date,omitempty"`
	ArticleCode    string `json:"article_code,omitempty"`
	ClauseCode     string `json:"clause_code,omitempty"`
	ChunkTitle     string `json:"chunk_title,omitempty"`
	LawField       string `json:"law_field,omitempty"`
}

// DocumentChunk is an indexed unit of source legal text.
type DocumentChunk struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Metadata  ChunkMetadata `json:"metadata"`
	Embedding []float32     `json:"-"`
}

// ArticleKey identifies the legal article a chunk belongs to, used to
// deduplicate retrieval results. Chunks without document metadata fall
// back to their own id so they are never collapsed with each other.
func (c DocumentChunk) ArticleKey() string {
	if c.Metadata.DocumentNumber == "" && c.Metadata.ArticleCode == "" {
		return c.ID
	}
	return c.Metadata.DocumentNumber + "#" + c.Metadata.ArticleCode
}

// SourceLabel builds the human-readable citation line for a chunk,
// e.g. "Luật - 59/2020/QH14 - Điều 15".
func (c DocumentChunk) SourceLabel() string {
	parts := make([]string, 0, 3)
	if c.Metadata.DocumentType != "" {
		parts = append(parts, c.Metadata.DocumentType)
	}
	if c.Metadata.DocumentNumber != "" {
		parts = append(parts, c.Metadata.DocumentNumber)
	}
	if c.Metadata.ChunkTitle != "" {
		parts = append(parts, c.Metadata.ChunkTitle)
	} else if c.Metadata.ArticleCode != "" {
		parts = append(parts, c.Metadata.ArticleCode)
	}
	if len(parts) == 0 {
		return "Tài liệu"
	}
	return strings.Join(parts, " - ")
}

// ScoredChunk is a vector store candidate with its similarity score.
type ScoredChunk struct {
	Chunk      DocumentChunk
	Similarity float64
}

// RetrievalResult is a chunk after reranking. Transient, recomputed per
// query. Rank is the final 1-based position in the returned slice.
type RetrievalResult struct {
	Chunk       DocumentChunk
	Score       float64
	RerankScore float64
	Rank        int
}

// ChunkFilter restricts a vector store query. Filters apply at the
// query stage, not post-hoc, so high-rank results are never discarded.
type ChunkFilter struct {
	DocumentTypes []string
	LawField      string
}

// Matches reports whether a chunk passes the filter.
func (f *ChunkFilter) Matches(c DocumentChunk) bool {
	if f == nil {
		return true
	}
	if len(f.DocumentTypes) > 0 {
		found := false
		for _, t := range f.DocumentTypes {
			if c.Metadata.DocumentType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.LawField != "" && c.Metadata.LawField != f.LawField {
		return false
	}
	return true
}
