// Package composer turns retrieved, cited elements into a grounded answer via
// the chat-completion capability.
package composer

import (
	"context"
	"fmt"
	"strings"

	"DocuMind/internal/ragengine/interfaces"
	"DocuMind/internal/ragengine/schema"
	"DocuMind/pkg/logger"
)

// Composer builds a grounded prompt from retrieval hits and delegates answer
// generation to the LLM capability.
type Composer struct {
	llm interfaces.LLM
	log *logger.Logger
}

// New creates a Composer.
func New(llm interfaces.LLM, log *logger.Logger) *Composer {
	return &Composer{llm: llm, log: log}
}

// Answer generates an answer to the query grounded in the given hits, paired
// with the citation list in the order the hits were used. Citations are
// derived only from hits, never invented. On capability failure the citations
// are still returned alongside ErrGeneration so the caller keeps partial
// value.
func (c *Composer) Answer(ctx context.Context, query string, hits []*schema.Hit) (string, []schema.Citation, error) {
	citations := make([]schema.Citation, len(hits))
	for i, h := range hits {
		citations[i] = schema.Citation{
			DocumentID: h.Element.DocumentID,
			PageNumber: h.Element.PageNumber,
			ElementID:  h.Element.ID,
		}
	}

	prompt := c.buildPrompt(query, hits)

	answer, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		c.log.WithError(err).Error("LLM failed to generate answer")
		return "", citations, fmt.Errorf("%w: %v", schema.ErrGeneration, err)
	}

	return strings.TrimSpace(answer), citations, nil
}

// buildPrompt lays out each hit's summary, raw content, and provenance as a
// numbered context block, then the question.
func (c *Composer) buildPrompt(query string, hits []*schema.Hit) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful assistant. Use the following contexts to answer the user's question.\n\n")
	for i, h := range hits {
		el := h.Element
		sb.WriteString(fmt.Sprintf("Context %d (%s, document %s, page %d):\n", i+1, el.Type, el.DocumentID, el.PageNumber))
		sb.WriteString(fmt.Sprintf("Summary: %s\n", el.Summary))
		if raw := strings.TrimSpace(el.RawContent()); raw != "" {
			sb.WriteString(fmt.Sprintf("Raw: %s\n", raw))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Question: %s\nAnswer:", query))

	return sb.String()
}
