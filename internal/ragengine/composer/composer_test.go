package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DocuMind/internal/ragengine/schema"
	"DocuMind/pkg/logger"
)

type stubLLM struct {
	response string
	err      error
	prompts  []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testLogger() *logger.Logger {
	logger.Init(logrus.ErrorLevel)
	return logger.New("test", "")
}

func hit(docID string, page, seq int, typ schema.ElementType, text, summary string) *schema.Hit {
	return &schema.Hit{
		Element: &schema.Element{
			ID:         schema.ElementID(docID, page, seq),
			DocumentID: docID,
			Type:       typ,
			PageNumber: page,
			Text:       text,
			Summary:    summary,
		},
	}
}

func TestAnswer_CitationsMirrorHitOrder(t *testing.T) {
	llm := &stubLLM{response: "Revenue grew 12% in Q1."}
	c := New(llm, testLogger())

	hits := []*schema.Hit{
		hit("report", 3, 1, schema.ElementTable, "Q1 | 12%", "Growth by quarter"),
		hit("report", 1, 0, schema.ElementText, "Revenue grew strongly.", "Revenue commentary"),
	}
	answer, citations, err := c.Answer(context.Background(), "How did revenue grow?", hits)
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12% in Q1.", answer)

	require.Len(t, citations, 2)
	assert.Equal(t, schema.Citation{DocumentID: "report", PageNumber: 3, ElementID: "report:3:1"}, citations[0])
	assert.Equal(t, schema.Citation{DocumentID: "report", PageNumber: 1, ElementID: "report:1:0"}, citations[1])
}

func TestAnswer_PromptCarriesSummaryAndRawContent(t *testing.T) {
	llm := &stubLLM{response: "ok"}
	c := New(llm, testLogger())

	hits := []*schema.Hit{
		hit("manual", 2, 0, schema.ElementText, "Torque bolts to 40 Nm.", "Bolt torque instructions"),
	}
	_, _, err := c.Answer(context.Background(), "What torque for the bolts?", hits)
	require.NoError(t, err)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "Bolt torque instructions")
	assert.Contains(t, prompt, "Torque bolts to 40 Nm.")
	assert.Contains(t, prompt, "document manual, page 2")
	assert.Contains(t, prompt, "Question: What torque for the bolts?")
}

func TestAnswer_ImageHitUsesTranscript(t *testing.T) {
	llm := &stubLLM{response: "ok"}
	c := New(llm, testLogger())

	h := hit("deck", 5, 2, schema.ElementImage, "", "Chart of monthly signups")
	h.Element.Transcript = "Signups: Jan 120 Feb 180"
	_, _, err := c.Answer(context.Background(), "How many signups in February?", []*schema.Hit{h})
	require.NoError(t, err)

	assert.Contains(t, llm.prompts[0], "Signups: Jan 120 Feb 180")
}

func TestAnswer_GenerationFailureKeepsCitations(t *testing.T) {
	llm := &stubLLM{err: errors.New("model overloaded")}
	c := New(llm, testLogger())

	hits := []*schema.Hit{
		hit("report", 1, 0, schema.ElementText, "Some text.", "A summary"),
	}
	answer, citations, err := c.Answer(context.Background(), "anything", hits)
	require.ErrorIs(t, err, schema.ErrGeneration)
	assert.Empty(t, answer)
	require.Len(t, citations, 1)
	assert.Equal(t, "report:1:0", citations[0].ElementID)
}

func TestAnswer_NoHits(t *testing.T) {
	llm := &stubLLM{response: "I do not have enough context to answer."}
	c := New(llm, testLogger())

	answer, citations, err := c.Answer(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Empty(t, citations)
}
