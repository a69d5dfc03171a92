// Package ocr contains OCR capability implementations used to recover text
// from image elements.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"DocuMind/internal/ragengine/interfaces"
)

// Tesseract is an OCR capability backed by the tesseract engine.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract OCR client for the given language codes.
func NewTesseract(languages []string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{languages: languages}
}

// Transcribe runs OCR over the image bytes and returns the recovered text.
// An empty string is a valid result for images with no recognizable text.
func (t *Tesseract) Transcribe(ctx context.Context, imageBytes []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// compile-time check to ensure Tesseract implements the OCR interface
var _ interfaces.OCR = (*Tesseract)(nil)
