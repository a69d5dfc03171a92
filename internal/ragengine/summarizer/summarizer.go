// Package summarizer produces the short natural-language summary each element
// is indexed and displayed under.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"DocuMind/internal/ragengine/interfaces"
	"DocuMind/internal/ragengine/schema"
	"DocuMind/pkg/logger"
)

const (
	textPrompt  = "Summarize the following text block concisely:\n\n%s"
	tablePrompt = "Summarize the following table in plain English:\n\n<table>\n%s\n</table>"
	imagePrompt = "Summarize the following OCR text from an image:\n\n%s"
)

// Summarizer generates type-appropriate summaries through the LLM capability,
// bounded to a fixed token budget.
type Summarizer struct {
	llm       interfaces.LLM
	maxTokens int
	tokenizer *tiktoken.Tiktoken
	log       *logger.Logger
}

// New creates a Summarizer. maxTokens is the hard cap applied to every
// generated summary.
func New(llm interfaces.LLM, maxTokens int, log *logger.Logger) (*Summarizer, error) {
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &Summarizer{llm: llm, maxTokens: maxTokens, tokenizer: tke, log: log}, nil
}

// Summarize returns the summary for one element. Image elements with no
// recoverable transcript get a deterministic placeholder without a capability
// call; everything else goes through the LLM with a per-type prompt. Failures
// are capability outages and wrap ErrSummarization.
func (s *Summarizer) Summarize(ctx context.Context, el *schema.Element) (string, error) {
	var prompt string
	switch el.Type {
	case schema.ElementTable:
		prompt = fmt.Sprintf(tablePrompt, el.Text)
	case schema.ElementImage:
		if strings.TrimSpace(el.Transcript) == "" {
			return fmt.Sprintf("image on page %d with no recoverable text", el.PageNumber), nil
		}
		prompt = fmt.Sprintf(imagePrompt, el.Transcript)
	default:
		prompt = fmt.Sprintf(textPrompt, el.Text)
	}

	summary, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrSummarization, err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		// The capability answered but produced nothing usable; fall back to a
		// type-tagged stub so the element stays indexable.
		summary = fmt.Sprintf("%s element on page %d", el.Type, el.PageNumber)
	}
	return s.truncate(summary), nil
}

// truncate enforces the token budget on a summary.
func (s *Summarizer) truncate(summary string) string {
	tokens := s.tokenizer.Encode(summary, nil, nil)
	if len(tokens) <= s.maxTokens {
		return summary
	}
	return s.tokenizer.Decode(tokens[:s.maxTokens])
}
