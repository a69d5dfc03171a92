package ocr

import (
	"context"

	"DocuMind/internal/ragengine/interfaces"
)

// Noop is an OCR capability that recovers nothing. Used when OCR is disabled
// in configuration; image elements then carry empty transcripts and get
// placeholder summaries.
type Noop struct{}

// NewNoop creates a Noop OCR client.
func NewNoop() *Noop {
	return &Noop{}
}

// Transcribe always returns an empty transcript.
func (Noop) Transcribe(ctx context.Context, imageBytes []byte) (string, error) {
	return "", nil
}

// compile-time check to ensure Noop implements the OCR interface
var _ interfaces.OCR = (*Noop)(nil)
