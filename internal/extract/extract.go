// Package extract turns loosely structured question files into questions.
//
// Every kind is reduced to rows of cells. The first cell is the question, the
// remaining non-empty cells are options. When the last option is an integer n
// with 1 <= n <= (number of other options) it is read as the 1-based number of
// the correct option and removed, provided at least two options remain.
// Otherwise the first option is the correct one.
package extract

import (
	"bytes"
	"net/url"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"decaquiz-service/internal/domain"
)

// Kind is the detected file format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindTXT  Kind = "txt"
)

// DefaultMaxQuestions caps a single extraction.
const DefaultMaxQuestions = 50

// Hint describes where the bytes came from. All fields are optional.
type Hint struct {
	ContentType string
	FileName    string
	SourceURL   string
}

// TextExtractor pulls plain text out of a binary document.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// Extractor parses question files.
type Extractor struct {
	maxQuestions int
	pdf          TextExtractor
}

// New returns an Extractor capped at maxQuestions (DefaultMaxQuestions if <= 0).
func New(maxQuestions int) *Extractor {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return &Extractor{maxQuestions: maxQuestions, pdf: PDFText{}}
}

// WithTextExtractor replaces the PDF text extractor.
func (e *Extractor) WithTextExtractor(pdf TextExtractor) *Extractor {
	e.pdf = pdf
	return e
}

// DetectKind checks the declared MIME type first, then the file name and URL
// extensions. Anything unrecognized is treated as delimited text.
func DetectKind(h Hint) Kind {
	mime := strings.ToLower(h.ContentType)
	switch {
	case strings.Contains(mime, "pdf"):
		return KindPDF
	case strings.Contains(mime, "csv"):
		return KindCSV
	case strings.Contains(mime, "spreadsheetml"):
		return KindXLSX
	case strings.Contains(mime, "text/plain"):
		return KindTXT
	}

	for _, name := range []string{strings.ToLower(h.FileName), urlPath(h.SourceURL)} {
		switch path.Ext(name) {
		case ".pdf":
			return KindPDF
		case ".csv":
			return KindCSV
		case ".xlsx":
			return KindXLSX
		case ".txt":
			return KindTXT
		}
	}
	return KindTXT
}

func urlPath(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil {
		return strings.ToLower(u.Path)
	}
	return strings.ToLower(raw)
}

// Extract parses data according to its detected kind. Malformed rows are
// skipped; only undecodable input is an error (wrapping domain.ErrDecode).
func (e *Extractor) Extract(data []byte, hint Hint) ([]domain.Question, error) {
	var (
		rows [][]string
		err  error
	)
	switch DetectKind(hint) {
	case KindPDF:
		var text string
		text, err = e.pdf.ExtractText(data)
		if err == nil {
			rows = delimitedRows(text)
		}
	case KindCSV:
		var text string
		if text, err = decodeText(data); err == nil {
			rows, err = csvRows(text)
		}
	case KindXLSX:
		rows, err = xlsxRows(data)
	default:
		var text string
		if text, err = decodeText(data); err == nil {
			rows = delimitedRows(text)
		}
	}
	if err != nil {
		return nil, domain.ErrDecode.Wrap(err)
	}
	return e.questions(rows), nil
}

func (e *Extractor) questions(rows [][]string) []domain.Question {
	out := make([]domain.Question, 0, min(len(rows), e.maxQuestions))
	for _, row := range rows {
		if len(out) == e.maxQuestions {
			break
		}
		if q, ok := ParseRow(row); ok {
			out = append(out, q)
		}
	}
	return out
}

// ParseRow converts one row of cells into a question.
func ParseRow(cells []string) (domain.Question, bool) {
	if len(cells) == 0 {
		return domain.Question{}, false
	}
	text := strings.TrimSpace(cells[0])
	options := make([]string, 0, len(cells)-1)
	for _, cell := range cells[1:] {
		if s := strings.TrimSpace(cell); s != "" {
			options = append(options, s)
		}
	}
	if text == "" || len(options) < 2 {
		return domain.Question{}, false
	}

	correct := 0
	others := len(options) - 1
	if n, err := strconv.Atoi(options[others]); err == nil && n >= 1 && n <= others && others >= 2 {
		correct = n - 1
		options = options[:others]
	}
	return domain.Question{Text: text, Options: options, CorrectIndex: correct}, true
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type invalidEncodingError struct{}

func (invalidEncodingError) Error() string { return "input is not valid UTF-8" }

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", invalidEncodingError{}
	}
	return string(data), nil
}

// delimitedRows splits text into non-empty lines of '|'-separated cells.
func delimitedRows(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		rows = append(rows, parts)
	}
	return rows
}
