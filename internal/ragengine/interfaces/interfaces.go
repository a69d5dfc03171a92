package interfaces

import (
	"context"

	"DocuMind/internal/ragengine/schema"
)

// Parser is the capability that segments a PDF into typed raw elements.
// Elements come back in page order, top to bottom within a page, with raw
// content populated and summaries empty.
type Parser interface {
	Parse(ctx context.Context, pdfBytes []byte) ([]*schema.Element, error)
}

// OCR recovers text from image bytes. An empty string is a valid result for
// images with no recoverable text.
type OCR interface {
	Transcribe(ctx context.Context, imageBytes []byte) (string, error)
}

// EmbeddingModel converts text into fixed-length vectors. The same model must
// serve index-time and query-time embedding.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM generates text from a prompt. Used for per-element summaries and for
// final answer generation.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorHit is one nearest-neighbor result from the vector store.
type VectorHit struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// VectorStore stores summary vectors with element metadata and supports
// similarity search, optionally filtered by document id.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, ids []string) error
	Query(ctx context.Context, vector []float32, topK int, documentID string) ([]VectorHit, error)
}

// RawStore is the durable key-value store owning raw element content. It is
// the source of truth citations resolve against, and the source the in-process
// keyword index is rebuilt from at startup.
type RawStore interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// KeywordHit is one lexical match over the summary corpus.
type KeywordHit struct {
	ID    string
	Score float64
}

// KeywordIndex supports lexical search over element summaries. It is the
// fallback leg of hybrid retrieval for queries that share vocabulary with
// summaries but are semantically distant.
type KeywordIndex interface {
	Add(id, documentID, summary string)
	Remove(ids []string)
	Search(query string, topK int, documentID string) []KeywordHit
}
