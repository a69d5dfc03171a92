package schema

import (
	"errors"
	"fmt"
)

// ElementType tags the kind of content an Element carries.
type ElementType string

const (
	ElementText  ElementType = "text"
	ElementTable ElementType = "table"
	ElementImage ElementType = "image"
)

// Element is the atomic unit of ingestion and retrieval: one extracted block
// of a document together with its provenance, raw content, and the summary
// used as its search key. It is the single data carrier through the pipelines.
type Element struct {
	// ID is unique within the corpus, formatted as {document_id}:{page}:{sequence}.
	ID string `json:"id"`

	// DocumentID identifies the owning document.
	DocumentID string `json:"document_id"`

	// Type is one of text, table, image.
	Type ElementType `json:"type"`

	// PageNumber is the 1-based page of origin.
	PageNumber int `json:"page_number"`

	// Text holds the raw content for text elements and the serialized
	// (pipe-delimited) rows for table elements.
	Text string `json:"text,omitempty"`

	// ImageData holds the raw image bytes for image elements.
	ImageData []byte `json:"image_data,omitempty"`

	// Transcript is the OCR text recovered from an image element. It may be
	// empty when nothing was recoverable; that is not an error.
	Transcript string `json:"transcript,omitempty"`

	// Summary is the short generated description used as the embedding and
	// keyword search key. Empty until the summarizer has run.
	Summary string `json:"summary,omitempty"`

	// Embedding is the vector representation of Summary. Populated by the
	// indexer, never persisted in the raw content store.
	Embedding []float32 `json:"-"`
}

// ElementID builds the stable element identifier from its parts.
func ElementID(documentID string, page, sequence int) string {
	return fmt.Sprintf("%s:%d:%d", documentID, page, sequence)
}

// RawContent returns the payload a citation should surface: the text or table
// serialization for textual elements, the transcript for images.
func (e *Element) RawContent() string {
	if e.Type == ElementImage {
		return e.Transcript
	}
	return e.Text
}

// Manifest records the ordered element ids belonging to a document. It is
// persisted alongside the raw content so re-ingestion can supersede the
// previous element set completely.
type Manifest struct {
	DocumentID string   `json:"document_id"`
	ElementIDs []string `json:"element_ids"`
}

// Hit is one retrieval result: the fused ranking scores plus the resolved
// element. Transient, never persisted.
type Hit struct {
	Element       *Element
	SemanticScore float64
	KeywordScore  float64
	FusedScore    float64
}

// Citation points a generated answer back at the original content.
type Citation struct {
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number"`
	ElementID  string `json:"element_id"`
}

// IngestReport summarizes one ingestion call. Element-level failures are
// isolated and reported here rather than aborting the whole document.
type IngestReport struct {
	DocumentID string   `json:"document_id"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	Summaries  []string `json:"summaries,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// Error classes for the ingestion and query paths. Callers dispatch with
// errors.Is; concrete failures wrap these sentinels.
var (
	// ErrExtraction marks a document that cannot be opened or has no
	// extractable pages. Fatal to that ingestion call.
	ErrExtraction = errors.New("extraction failed")

	// ErrSummarization marks a summarization capability outage. Fatal to the
	// single element, not to the rest of the document.
	ErrSummarization = errors.New("summarization failed")

	// ErrIndexWrite marks a store write failure during indexing. The element
	// must not be left partially visible.
	ErrIndexWrite = errors.New("index write failed")

	// ErrCitationResolution marks an indexed element whose raw content is
	// missing. The hit is dropped and logged; the query continues.
	ErrCitationResolution = errors.New("citation resolution failed")

	// ErrGeneration marks a chat capability outage during answer composition.
	ErrGeneration = errors.New("answer generation failed")
)
