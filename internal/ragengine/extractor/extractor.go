// Package extractor turns one PDF into the ordered, identified sequence of
// typed raw elements the rest of the engine operates on.
package extractor

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"DocuMind/internal/ragengine/interfaces"
	"DocuMind/internal/ragengine/schema"
	"DocuMind/pkg/logger"
)

// Extractor segments a PDF into elements via the parser capability, splits
// oversized text blocks into token-bounded chunks, recovers image transcripts
// via the OCR capability, and assigns stable element ids.
type Extractor struct {
	parser       interfaces.Parser
	ocr          interfaces.OCR
	chunkSize    int
	chunkOverlap int
	tokenizer    *tiktoken.Tiktoken
	log          *logger.Logger
}

// New creates an Extractor. chunkSize and chunkOverlap bound text elements in
// tokens; blocks longer than chunkSize become multiple elements.
func New(parser interfaces.Parser, ocr interfaces.OCR, chunkSize, chunkOverlap int, log *logger.Logger) (*Extractor, error) {
	// cl100k_base matches the tokenizer of the embedding and chat models.
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &Extractor{
		parser:       parser,
		ocr:          ocr,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		tokenizer:    tke,
		log:          log,
	}, nil
}

// Extract parses the PDF and returns elements with raw content populated and
// summaries empty, ordered by page then top-to-bottom position. Element ids
// follow {document_id}:{page}:{sequence} with sequence counted per page.
func (e *Extractor) Extract(ctx context.Context, documentID string, pdfBytes []byte) ([]*schema.Element, error) {
	parsed, err := e.parser.Parse(ctx, pdfBytes)
	if err != nil {
		return nil, err
	}

	var elements []*schema.Element
	sequence := map[int]int{}
	for _, el := range parsed {
		for _, piece := range e.expand(el) {
			piece.DocumentID = documentID
			piece.ID = schema.ElementID(documentID, piece.PageNumber, sequence[piece.PageNumber])
			sequence[piece.PageNumber]++

			if piece.Type == schema.ElementImage {
				transcript, err := e.ocr.Transcribe(ctx, piece.ImageData)
				if err != nil {
					// An unreadable image is not an extraction failure; it
					// just has no recoverable transcript.
					e.log.WithError(err).Warn(fmt.Sprintf("OCR failed for %s, keeping empty transcript", piece.ID))
					transcript = ""
				}
				piece.Transcript = transcript
			}

			elements = append(elements, piece)
		}
	}

	e.log.WithPayload(map[string]interface{}{
		"document_id": documentID,
		"elements":    len(elements),
	}).Info("Extraction complete")
	return elements, nil
}

// expand splits oversized text elements into token-bounded chunks. Tables and
// images pass through whole: a table split across chunks loses its structure,
// and images are atomic.
func (e *Extractor) expand(el *schema.Element) []*schema.Element {
	if el.Type != schema.ElementText {
		return []*schema.Element{el}
	}

	tokens := e.tokenizer.Encode(el.Text, nil, nil)
	if len(tokens) <= e.chunkSize {
		return []*schema.Element{el}
	}

	step := e.chunkSize - e.chunkOverlap
	if step <= 0 {
		step = e.chunkSize
	}

	var pieces []*schema.Element
	for start := 0; start < len(tokens); start += step {
		end := start + e.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		pieces = append(pieces, &schema.Element{
			Type:       schema.ElementText,
			PageNumber: el.PageNumber,
			Text:       e.tokenizer.Decode(tokens[start:end]),
		})
		if end == len(tokens) {
			break
		}
	}
	return pieces
}
