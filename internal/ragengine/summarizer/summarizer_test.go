package summarizer

import (
	"context"
	"errors"
	"strings"
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

func newTestSummarizer(t *testing.T, llm *stubLLM, maxTokens int) *Summarizer {
	t.Helper()
	s, err := New(llm, maxTokens, testLogger())
	require.NoError(t, err)
	return s
}

func TestSummarize_TextPrompt(t *testing.T) {
	llm := &stubLLM{response: "a concise summary"}
	s := newTestSummarizer(t, llm, 120)

	summary, err := s.Summarize(context.Background(), &schema.Element{
		Type: schema.ElementText, PageNumber: 1, Text: "long discussion of results",
	})
	require.NoError(t, err)
	assert.Equal(t, "a concise summary", summary)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Summarize the following text block concisely")
	assert.Contains(t, llm.prompts[0], "long discussion of results")
}

func TestSummarize_TablePrompt(t *testing.T) {
	llm := &stubLLM{response: "revenue by region"}
	s := newTestSummarizer(t, llm, 120)

	_, err := s.Summarize(context.Background(), &schema.Element{
		Type: schema.ElementTable, PageNumber: 2, Text: "region | revenue",
	})
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Summarize the following table in plain English")
	assert.Contains(t, llm.prompts[0], "<table>")
}

func TestSummarize_ImagePromptUsesTranscript(t *testing.T) {
	llm := &stubLLM{response: "a chart of melting glaciers"}
	s := newTestSummarizer(t, llm, 120)

	_, err := s.Summarize(context.Background(), &schema.Element{
		Type: schema.ElementImage, PageNumber: 4, Transcript: "glacier mass 1990-2020",
	})
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Summarize the following OCR text from an image")
	assert.Contains(t, llm.prompts[0], "glacier mass 1990-2020")
}

func TestSummarize_EmptyTranscriptPlaceholder(t *testing.T) {
	llm := &stubLLM{response: "should never be called"}
	s := newTestSummarizer(t, llm, 120)

	summary, err := s.Summarize(context.Background(), &schema.Element{
		Type: schema.ElementImage, PageNumber: 7, Transcript: "   ",
	})
	require.NoError(t, err)
	assert.Equal(t, "image on page 7 with no recoverable text", summary)
	assert.Empty(t, llm.prompts, "placeholder must not cost a capability call")
}

func TestSummarize_TruncatesToTokenBudget(t *testing.T) {
	llm := &stubLLM{response: strings.Repeat("word ", 500)}
	s := newTestSummarizer(t, llm, 10)

	summary, err := s.Summarize(context.Background(), &schema.Element{
		Type: schema.ElementText, PageNumber: 1, Text: "anything",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
	assert.Less(t, len(summary), len(llm.response))
}

func TestSummarize_CapabilityOutage(t *testing.T) {
	llm := &stubLLM{err: errors.New("connection refused")}
	s := newTestSummarizer(t, llm, 120)

	_, err := s.Summarize(context.Background(), &schema.Element{
		Type: schema.ElementText, PageNumber: 1, Text: "anything",
	})
	assert.ErrorIs(t, err, schema.ErrSummarization)
}

func TestSummarize_BlankResponseFallsBack(t *testing.T) {
	llm := &stubLLM{response: "  \n "}
	s := newTestSummarizer(t, llm, 120)

	summary, err := s.Summarize(context.Background(), &schema.Element{
		Type: schema.ElementTable, PageNumber: 3, Text: "a | b",
	})
	require.NoError(t, err)
	assert.Equal(t, "table element on page 3", summary)
}
