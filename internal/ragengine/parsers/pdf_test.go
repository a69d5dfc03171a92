package parsers

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"DocuMind/internal/ragengine/schema"
	"DocuMind/pkg/logger"
)

func testLogger() *logger.Logger {
	logger.Init(logrus.ErrorLevel)
	return logger.New("test", "")
}

// buildPDF assembles a minimal single-xref PDF from the given object bodies,
// numbered from 1 in order.
func buildPDF(t *testing.T, root string, objects ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, len(objects))
	for i, body := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d %05d n \n", off, 0)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %s >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, root, xrefOffset)
	return buf.Bytes()
}

func TestParse_AllPagesUnreadable(t *testing.T) {
	// Both page tree kids resolve to null objects, so no page yields content.
	pdfBytes := buildPDF(t, "1 0 R",
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Count 2 /Kids [3 0 R 4 0 R] >>",
		"null",
		"null",
	)

	parser := NewPDFParser(testLogger())
	_, err := parser.Parse(context.Background(), pdfBytes)
	assert.ErrorIs(t, err, schema.ErrExtraction)
}

func TestParse_NotAPDF(t *testing.T) {
	parser := NewPDFParser(testLogger())
	_, err := parser.Parse(context.Background(), []byte("plain text, not a document"))
	assert.ErrorIs(t, err, schema.ErrExtraction)
}

func TestParse_EmptyBytes(t *testing.T) {
	parser := NewPDFParser(testLogger())
	_, err := parser.Parse(context.Background(), nil)
	assert.ErrorIs(t, err, schema.ErrExtraction)
}
