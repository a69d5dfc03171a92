// Package parsers contains document parser capabilities that segment raw
// document bytes into typed elements.
package parsers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"DocuMind/internal/ragengine/interfaces"
	"DocuMind/internal/ragengine/schema"
	"DocuMind/pkg/logger"
)

const (
	// rowTolerance groups glyph runs whose baselines differ by less than this
	// many points into the same visual row.
	rowTolerance = 2.0

	// cellGap is the horizontal whitespace, in points, that separates two
	// runs into distinct table cells.
	cellGap = 18.0

	// minTableRows is the minimum run of consecutive multi-cell rows treated
	// as a table rather than ragged prose.
	minTableRows = 2
)

// PDFParser segments PDF pages into text blocks, tables, and images. Text and
// layout come from the pdf reader's positioned glyph runs; images are pulled
// from each page's XObject resources.
type PDFParser struct {
	log *logger.Logger
}

// NewPDFParser creates a new PDFParser.
func NewPDFParser(log *logger.Logger) *PDFParser {
	return &PDFParser{log: log}
}

// Parse reads the PDF and returns raw elements in page order, top to bottom
// within each page. Element ids, document ids, transcripts, and summaries are
// left for later stages.
func (p *PDFParser) Parse(ctx context.Context, pdfBytes []byte) ([]*schema.Element, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open document: %v", schema.ErrExtraction, err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("%w: document has no pages", schema.ErrExtraction)
	}

	var elements []*schema.Element
	readable := 0
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		readable++

		elements = append(elements, p.parsePageText(page, i)...)
		elements = append(elements, p.extractPageImages(page, i)...)
	}
	if readable == 0 {
		return nil, fmt.Errorf("%w: no extractable pages", schema.ErrExtraction)
	}

	return elements, nil
}

// row is one visual line of the page: glyph runs sharing a baseline, grouped
// into cells by horizontal gaps.
type row struct {
	y     float64
	cells []string
}

// parsePageText reconstructs rows from positioned glyph runs and classifies
// consecutive multi-cell rows as tables, everything else as prose blocks.
func (p *PDFParser) parsePageText(page pdf.Page, pageNumber int) []*schema.Element {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	rows := buildRows(content.Text)

	var elements []*schema.Element
	var textLines []string
	var tableRows []row

	flushText := func() {
		block := strings.TrimSpace(strings.Join(textLines, "\n"))
		textLines = nil
		if block == "" {
			return
		}
		elements = append(elements, &schema.Element{
			Type:       schema.ElementText,
			PageNumber: pageNumber,
			Text:       block,
		})
	}
	flushTable := func() {
		if len(tableRows) == 0 {
			return
		}
		if len(tableRows) < minTableRows {
			// Too short to be a table; fold back into prose.
			for _, r := range tableRows {
				textLines = append(textLines, strings.Join(r.cells, " "))
			}
			tableRows = nil
			return
		}
		flushText()
		lines := make([]string, len(tableRows))
		for i, r := range tableRows {
			lines[i] = strings.Join(r.cells, " | ")
		}
		tableRows = nil
		elements = append(elements, &schema.Element{
			Type:       schema.ElementTable,
			PageNumber: pageNumber,
			Text:       strings.Join(lines, "\n"),
		})
	}

	for _, r := range rows {
		if len(r.cells) >= 2 {
			tableRows = append(tableRows, r)
			continue
		}
		flushTable()
		textLines = append(textLines, strings.Join(r.cells, " "))
	}
	flushTable()
	flushText()

	return elements
}

// buildRows groups glyph runs by baseline and splits each row into cells at
// large horizontal gaps. Rows come back top to bottom (PDF y grows upward).
func buildRows(texts []pdf.Text) []row {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if diff := sorted[i].Y - sorted[j].Y; diff > rowTolerance || diff < -rowTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var rows []row
	var cur *row
	var lastX, lastW float64
	var cell strings.Builder

	endCell := func() {
		if cur == nil {
			return
		}
		if text := strings.TrimSpace(cell.String()); text != "" {
			cur.cells = append(cur.cells, text)
		}
		cell.Reset()
	}
	endRow := func() {
		endCell()
		if cur != nil && len(cur.cells) > 0 {
			rows = append(rows, *cur)
		}
		cur = nil
	}

	for _, t := range sorted {
		if t.S == "" {
			continue
		}
		if cur == nil || cur.y-t.Y > rowTolerance {
			endRow()
			cur = &row{y: t.Y}
			lastX, lastW = t.X, 0
		}
		if gap := t.X - (lastX + lastW); gap > cellGap && cell.Len() > 0 {
			endCell()
		} else if gap > 0.25*t.FontSize && cell.Len() > 0 {
			cell.WriteString(" ")
		}
		cell.WriteString(t.S)
		lastX, lastW = t.X, t.W
	}
	endRow()

	return rows
}

// extractPageImages walks the page's XObject resources and returns one image
// element per embedded image stream. Streams that cannot be decoded are
// skipped rather than failing the page.
func (p *PDFParser) extractPageImages(page pdf.Page, pageNumber int) []*schema.Element {
	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return nil
	}
	xobjects := resources.Key("XObject")
	if xobjects.IsNull() || xobjects.Kind() != pdf.Dict {
		return nil
	}

	// Deterministic traversal order: XObject names sorted.
	names := xobjects.Keys()
	sort.Strings(names)

	var elements []*schema.Element
	for _, name := range names {
		obj := xobjects.Key(name)
		if obj.Kind() != pdf.Stream || obj.Key("Subtype").Name() != "Image" {
			continue
		}
		data, err := io.ReadAll(obj.Reader())
		if err != nil || len(data) == 0 {
			if p.log != nil {
				p.log.Warn(fmt.Sprintf("Skipping unreadable image %s on page %d", name, pageNumber))
			}
			continue
		}
		elements = append(elements, &schema.Element{
			Type:       schema.ElementImage,
			PageNumber: pageNumber,
			ImageData:  data,
		})
	}
	return elements
}

// compile-time check to ensure PDFParser implements the Parser interface
var _ interfaces.Parser = (*PDFParser)(nil)
