// Package retriever answers queries against the summary corpus by fusing
// vector-similarity search with lexical search and resolving every surviving
// hit back to its raw content.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"DocuMind/internal/config"
	"DocuMind/internal/ragengine/indexer"
	"DocuMind/internal/ragengine/interfaces"
	"DocuMind/internal/ragengine/schema"
	"DocuMind/pkg/logger"
)

// Retriever runs hybrid retrieval: a semantic leg over summary vectors and a
// keyword leg over summary text, fused into one deterministic ranking.
type Retriever struct {
	embedder     interfaces.EmbeddingModel
	vectorStore  interfaces.VectorStore
	keywordIndex interfaces.KeywordIndex
	rawStore     interfaces.RawStore
	cfg          config.RetrieverConfig
	log          *logger.Logger
}

// New creates a Retriever with the given fusion configuration.
func New(
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	keywordIndex interfaces.KeywordIndex,
	rawStore interfaces.RawStore,
	cfg config.RetrieverConfig,
	log *logger.Logger,
) *Retriever {
	return &Retriever{
		embedder:     embedder,
		vectorStore:  vectorStore,
		keywordIndex: keywordIndex,
		rawStore:     rawStore,
		cfg:          cfg,
		log:          log,
	}
}

// candidate accumulates the per-leg scores of one element id before fusion.
type candidate struct {
	semantic   float64
	keyword    float64
	inSemantic bool
	inKeyword  bool
}

// Retrieve returns at most topK hits for the query, ordered by fused score
// descending with ties broken by page number then element id. An empty corpus
// or an all-below-threshold candidate set yields an empty slice, not an
// error. documentID, when non-empty, restricts both legs to that document.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, documentID string) ([]*schema.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	semanticHits, err := r.vectorStore.Query(ctx, queryVector, r.cfg.TopKSemantic, documentID)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	keywordHits := r.keywordIndex.Search(query, r.cfg.TopKKeyword, documentID)

	candidates := make(map[string]*candidate)
	for _, h := range semanticHits {
		c := &candidate{semantic: h.Score, inSemantic: true}
		candidates[h.ID] = c
	}
	for _, h := range keywordHits {
		c, ok := candidates[h.ID]
		if !ok {
			c = &candidate{}
			candidates[h.ID] = c
		}
		c.keyword = h.Score
		c.inKeyword = true
	}
	if len(candidates) == 0 {
		return []*schema.Hit{}, nil
	}

	// Normalize each leg by its best score so the two scales are comparable.
	// Negative similarities contribute nothing.
	var maxSemantic, maxKeyword float64
	for _, c := range candidates {
		if c.semantic > maxSemantic {
			maxSemantic = c.semantic
		}
		if c.keyword > maxKeyword {
			maxKeyword = c.keyword
		}
	}

	hits := make([]*schema.Hit, 0, len(candidates))
	for id, c := range candidates {
		el, err := indexer.ResolveElement(ctx, r.rawStore, id)
		if err != nil {
			// Index/raw-store inconsistency: drop this hit, keep the query alive.
			r.log.WithError(err).Warn("Dropping unresolvable hit")
			continue
		}

		var semNorm, keyNorm float64
		if maxSemantic > 0 && c.semantic > 0 {
			semNorm = c.semantic / maxSemantic
		}
		if maxKeyword > 0 && c.keyword > 0 {
			keyNorm = c.keyword / maxKeyword
		}
		fused := r.cfg.SemanticWeight*semNorm + r.cfg.KeywordWeight*keyNorm
		if c.inSemantic && c.inKeyword {
			fused += r.cfg.DualBonus
		}

		hits = append(hits, &schema.Hit{
			Element:       el,
			SemanticScore: c.semantic,
			KeywordScore:  c.keyword,
			FusedScore:    fused,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FusedScore != hits[j].FusedScore {
			return hits[i].FusedScore > hits[j].FusedScore
		}
		if hits[i].Element.PageNumber != hits[j].Element.PageNumber {
			return hits[i].Element.PageNumber < hits[j].Element.PageNumber
		}
		return hits[i].Element.ID < hits[j].Element.ID
	})

	filtered := hits[:0]
	for _, h := range hits {
		if h.FusedScore >= r.cfg.MinScore {
			filtered = append(filtered, h)
		}
	}
	hits = filtered
	if len(hits) > topK {
		hits = hits[:topK]
	}

	r.log.WithPayload(map[string]interface{}{
		"query":       query,
		"candidates":  len(candidates),
		"returned":    len(hits),
		"document_id": documentID,
	}).Info("Retrieval complete")
	return hits, nil
}
