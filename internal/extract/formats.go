package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

func csvRows(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, record)
	}
}

// xlsxRows reads the first sheet of a workbook.
func xlsxRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// PDFText extracts the text layer of a PDF, one output line per visual line.
// Lines are rebuilt from glyph baselines; the reader's plain text only breaks
// on T* and the quote operators, not on Td or Tm moves.
type PDFText struct{}

func (PDFText) ExtractText(data []byte) (text string, err error) {
	// The reader panics on some corrupt cross-reference tables and content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		writePageLines(&b, page.Content().Text)
	}
	return b.String(), nil
}

// writePageLines writes glyphs in stream order, breaking the line whenever the
// baseline moves by more than half the font size.
func writePageLines(b *strings.Builder, glyphs []pdf.Text) {
	var (
		started bool
		lineY   float64
	)
	for _, g := range glyphs {
		if g.S == "\n" || g.S == "\r" {
			continue
		}
		tolerance := g.FontSize / 2
		if tolerance < 1 {
			tolerance = 1
		}
		switch {
		case !started:
			started, lineY = true, g.Y
		case math.Abs(g.Y-lineY) > tolerance:
			b.WriteByte('\n')
			lineY = g.Y
		}
		b.WriteString(g.S)
	}
	if started {
		b.WriteByte('\n')
	}
}
