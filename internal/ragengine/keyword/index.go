// Package keyword provides the lexical leg of hybrid retrieval: a small
// in-memory index over element summaries scored by term overlap. It exists
// for queries that share vocabulary with summaries but are semantically
// distant from them, such as exact numbers, proper nouns, and table headers.
package keyword

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"DocuMind/internal/ragengine/interfaces"
)

// phraseBoost is added when the whole query appears verbatim in a summary.
// It guarantees exact-phrase matches outrank bag-of-words overlap.
const phraseBoost = 2.0

type entry struct {
	documentID string
	summary    string // lowercased, for verbatim phrase matching
	terms      map[string]int
	length     int
}

// Index is a thread-safe lexical index over summaries.
type Index struct {
	mu           sync.RWMutex
	entries      map[string]*entry
	df           map[string]int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		entries:      make(map[string]*entry),
		df:           make(map[string]int),
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+(?:[.,]\p{N}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Add indexes one summary under the given element id, replacing any previous
// entry for the same id.
func (ix *Index) Add(id, documentID, summary string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.entries[id]; ok {
		ix.dropTerms(old)
	}

	e := &entry{
		documentID: documentID,
		summary:    strings.ToLower(summary),
		terms:      make(map[string]int),
	}
	for _, tok := range ix.tokenize(summary) {
		if _, isStop := ix.stopwords[tok]; isStop {
			continue
		}
		e.terms[tok]++
		e.length++
	}
	for term := range e.terms {
		ix.df[term]++
	}
	ix.entries[id] = e
}

// Remove drops the given element ids from the index.
func (ix *Index) Remove(ids []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, id := range ids {
		if e, ok := ix.entries[id]; ok {
			ix.dropTerms(e)
			delete(ix.entries, id)
		}
	}
}

// Search scores every summary against the query and returns the topK matches
// with a positive score, optionally restricted to one document. Results are
// ordered by score descending with id ascending as a deterministic tie-break.
func (ix *Index) Search(query string, topK int, documentID string) []interfaces.KeywordHit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	queryTerms := make(map[string]struct{})
	for _, tok := range ix.tokenize(query) {
		if _, isStop := ix.stopwords[tok]; isStop {
			continue
		}
		queryTerms[tok] = struct{}{}
	}
	phrase := strings.ToLower(strings.TrimSpace(query))

	n := float64(len(ix.entries))
	var hits []interfaces.KeywordHit
	for id, e := range ix.entries {
		if documentID != "" && e.documentID != documentID {
			continue
		}

		var score float64
		for term := range queryTerms {
			tf := e.terms[term]
			if tf == 0 {
				continue
			}
			// Smoothed IDF-weighted term frequency, normalized by summary length.
			idf := math.Log((1+n)/(1+float64(ix.df[term]))) + 1.0
			score += (float64(tf) / float64(max(e.length, 1))) * idf
		}
		if phrase != "" && strings.Contains(e.summary, phrase) {
			score += phraseBoost
		}
		if score > 0 {
			hits = append(hits, interfaces.KeywordHit{ID: id, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Len reports the number of indexed summaries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *Index) dropTerms(e *entry) {
	for term := range e.terms {
		ix.df[term]--
		if ix.df[term] <= 0 {
			delete(ix.df, term)
		}
	}
}

func (ix *Index) tokenize(text string) []string {
	return ix.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "have", "in", "is", "it", "its", "of", "on", "or", "that",
		"the", "to", "was", "were", "which", "with",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// compile-time check to ensure Index implements the KeywordIndex interface
var _ interfaces.KeywordIndex = (*Index)(nil)
