// Package indexer owns the two-store write path: raw content first, vector
// visibility second, so every retrievable entry resolves to raw content.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"DocuMind/internal/ragengine/interfaces"
	"DocuMind/internal/ragengine/schema"
	"DocuMind/internal/ragengine/storages/vectorstore"
	"DocuMind/pkg/logger"
)

// manifestKey is the raw-store key holding a document's element id list.
func manifestKey(documentID string) string {
	return "manifest/" + documentID
}

// elementKey is the raw-store key holding one serialized element.
func elementKey(elementID string) string {
	return "element/" + elementID
}

// Indexer writes summarized elements into the raw store, the vector store,
// and the keyword index as one logical unit per element. It also serializes
// re-ingestion of a document against queries over that document.
type Indexer struct {
	embedder     interfaces.EmbeddingModel
	rawStore     interfaces.RawStore
	vectorStore  interfaces.VectorStore
	keywordIndex interfaces.KeywordIndex
	log          *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// New creates an Indexer.
func New(
	embedder interfaces.EmbeddingModel,
	rawStore interfaces.RawStore,
	vectorStore interfaces.VectorStore,
	keywordIndex interfaces.KeywordIndex,
	log *logger.Logger,
) *Indexer {
	return &Indexer{
		embedder:     embedder,
		rawStore:     rawStore,
		vectorStore:  vectorStore,
		keywordIndex: keywordIndex,
		log:          log,
		locks:        make(map[string]*sync.RWMutex),
	}
}

// documentLock returns the lock serializing writes and reads of one document.
func (ix *Indexer) documentLock(documentID string) *sync.RWMutex {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	l, ok := ix.locks[documentID]
	if !ok {
		l = &sync.RWMutex{}
		ix.locks[documentID] = l
	}
	return l
}

// RLockDocument takes a read view of one document for the duration of a
// query, so a query never observes a half-replaced element set. The returned
// function releases it. An empty document id is a no-op.
func (ix *Indexer) RLockDocument(documentID string) func() {
	if documentID == "" {
		return func() {}
	}
	l := ix.documentLock(documentID)
	l.RLock()
	return l.RUnlock
}

// Index persists the given summarized elements for one document, superseding
// any previously indexed element set for the same document id. For each
// element the raw-store write is durable before the vector-store upsert makes
// it visible; a failed vector write rolls the raw entry back. A store failure
// aborts the call with ErrIndexWrite; elements already indexed remain fully
// visible and are recorded in the manifest.
func (ix *Indexer) Index(ctx context.Context, documentID string, elements []*schema.Element) error {
	lock := ix.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	if len(elements) == 0 {
		return ix.removeLocked(ctx, documentID)
	}

	// Embed all summaries before touching the stores; an embedding outage
	// fails the call with the prior element set still intact.
	texts := make([]string, len(elements))
	for i, el := range elements {
		texts[i] = el.Summary
	}
	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embedding summaries: %v", schema.ErrIndexWrite, err)
	}
	for i, el := range elements {
		el.Embedding = embeddings[i]
	}

	if err := ix.removeLocked(ctx, documentID); err != nil {
		return err
	}

	indexed := make([]string, 0, len(elements))
	writeManifest := func() error {
		manifest := schema.Manifest{DocumentID: documentID, ElementIDs: indexed}
		data, err := json.Marshal(manifest)
		if err != nil {
			return fmt.Errorf("%w: encoding manifest: %v", schema.ErrIndexWrite, err)
		}
		if err := ix.rawStore.Put(ctx, manifestKey(documentID), data); err != nil {
			return fmt.Errorf("%w: writing manifest: %v", schema.ErrIndexWrite, err)
		}
		return nil
	}

	for _, el := range elements {
		if err := ix.indexElement(ctx, el); err != nil {
			// Keep what already became visible consistent before failing.
			if mErr := writeManifest(); mErr != nil {
				ix.log.WithError(mErr).Error("Failed to record manifest after aborted ingestion")
			}
			return err
		}
		indexed = append(indexed, el.ID)
	}

	if err := writeManifest(); err != nil {
		return err
	}

	ix.log.WithPayload(map[string]interface{}{
		"document_id": documentID,
		"elements":    len(indexed),
	}).Info("Indexing complete")
	return nil
}

// indexElement runs the two-phase write for one element.
func (ix *Indexer) indexElement(ctx context.Context, el *schema.Element) error {
	data, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("%w: encoding element %s: %v", schema.ErrIndexWrite, el.ID, err)
	}
	if err := ix.rawStore.Put(ctx, elementKey(el.ID), data); err != nil {
		return fmt.Errorf("%w: raw store put for %s: %v", schema.ErrIndexWrite, el.ID, err)
	}

	metadata := map[string]string{
		vectorstore.FieldDocumentID:  el.DocumentID,
		vectorstore.FieldElementType: string(el.Type),
		vectorstore.FieldPageNumber:  fmt.Sprintf("%d", el.PageNumber),
	}
	if err := ix.vectorStore.Upsert(ctx, el.ID, el.Embedding, metadata); err != nil {
		// The element must not stay half-visible: roll the raw entry back.
		if rbErr := ix.rawStore.Delete(ctx, elementKey(el.ID)); rbErr != nil {
			ix.log.WithError(rbErr).Error(fmt.Sprintf("Orphaned raw entry %s after failed vector write", el.ID))
		}
		return fmt.Errorf("%w: vector store upsert for %s: %v", schema.ErrIndexWrite, el.ID, err)
	}

	ix.keywordIndex.Add(el.ID, el.DocumentID, searchText(el))
	return nil
}

// searchText is what the keyword index holds for one element: the summary plus
// the raw content, so verbatim phrases from tables and prose (exact numbers,
// headers) stay lexically findable even when the summary paraphrases them away.
func searchText(el *schema.Element) string {
	text := el.Summary
	if raw := strings.TrimSpace(el.RawContent()); raw != "" {
		text += "\n" + raw
	}
	return text
}

// RebuildKeywordIndex repopulates the keyword index from the raw store. The
// raw store and the vector store persist across restarts; the keyword index
// lives in process memory, so the lexical leg is rebuilt from the manifests
// before the server starts accepting queries.
func (ix *Indexer) RebuildKeywordIndex(ctx context.Context) error {
	keys, err := ix.rawStore.List(ctx, manifestKey(""))
	if err != nil {
		return fmt.Errorf("%w: listing manifests: %v", schema.ErrIndexWrite, err)
	}

	elements := 0
	for _, key := range keys {
		documentID := strings.TrimPrefix(key, manifestKey(""))
		restored, err := ix.rebuildDocument(ctx, documentID)
		if err != nil {
			return err
		}
		elements += restored
	}

	ix.log.WithPayload(map[string]interface{}{
		"documents": len(keys),
		"elements":  elements,
	}).Info("Keyword index rebuilt")
	return nil
}

// rebuildDocument re-adds one document's elements to the keyword index.
func (ix *Indexer) rebuildDocument(ctx context.Context, documentID string) (int, error) {
	lock := ix.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	data, ok, err := ix.rawStore.Get(ctx, manifestKey(documentID))
	if err != nil {
		return 0, fmt.Errorf("%w: reading manifest for %s: %v", schema.ErrIndexWrite, documentID, err)
	}
	if !ok {
		return 0, nil
	}
	var manifest schema.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return 0, fmt.Errorf("%w: decoding manifest for %s: %v", schema.ErrIndexWrite, documentID, err)
	}

	restored := 0
	for _, id := range manifest.ElementIDs {
		el, err := ResolveElement(ctx, ix.rawStore, id)
		if err != nil {
			ix.log.WithError(err).Warn("Skipping unresolvable element during keyword rebuild")
			continue
		}
		ix.keywordIndex.Add(el.ID, el.DocumentID, searchText(el))
		restored++
	}
	return restored, nil
}

// Remove deletes every indexed element of a document from all three stores.
func (ix *Indexer) Remove(ctx context.Context, documentID string) error {
	lock := ix.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()
	return ix.removeLocked(ctx, documentID)
}

func (ix *Indexer) removeLocked(ctx context.Context, documentID string) error {
	data, ok, err := ix.rawStore.Get(ctx, manifestKey(documentID))
	if err != nil {
		return fmt.Errorf("%w: reading manifest for %s: %v", schema.ErrIndexWrite, documentID, err)
	}
	if !ok {
		return nil
	}

	var manifest schema.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("%w: decoding manifest for %s: %v", schema.ErrIndexWrite, documentID, err)
	}

	// Retract visibility first so nothing dangles while raw entries go away.
	if err := ix.vectorStore.Delete(ctx, manifest.ElementIDs); err != nil {
		return fmt.Errorf("%w: vector store delete for %s: %v", schema.ErrIndexWrite, documentID, err)
	}
	ix.keywordIndex.Remove(manifest.ElementIDs)

	for _, id := range manifest.ElementIDs {
		if err := ix.rawStore.Delete(ctx, elementKey(id)); err != nil {
			return fmt.Errorf("%w: raw store delete for %s: %v", schema.ErrIndexWrite, id, err)
		}
	}
	if err := ix.rawStore.Delete(ctx, manifestKey(documentID)); err != nil {
		return fmt.Errorf("%w: deleting manifest for %s: %v", schema.ErrIndexWrite, documentID, err)
	}
	return nil
}

// ResolveElement loads one element's raw content from the raw store.
func ResolveElement(ctx context.Context, rawStore interfaces.RawStore, elementID string) (*schema.Element, error) {
	data, ok, err := rawStore.Get(ctx, elementKey(elementID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", schema.ErrCitationResolution, elementID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s: raw content missing", schema.ErrCitationResolution, elementID)
	}
	var el schema.Element
	if err := json.Unmarshal(data, &el); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", schema.ErrCitationResolution, elementID, err)
	}
	return &el, nil
}
