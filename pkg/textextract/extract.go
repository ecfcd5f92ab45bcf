package textextract

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is the extracted text of an uploaded file, kept as visual lines.
type Document struct {
	Pages []Page
	// SkippedPages counts PDF pages whose content stream could not be read.
	SkippedPages int
}

type Page struct {
	Number int
	Lines  []string
}

// Lines returns every non-blank line of the document in reading order, trimmed.
func (d *Document) Lines() []string {
	var out []string
	for _, p := range d.Pages {
		for _, l := range p.Lines {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
	}
	return out
}

func (d *Document) Text() string {
	return strings.Join(d.Lines(), "\n")
}

// Extract reads a PDF or plain-text document.
func Extract(data io.ReaderAt, size int64, fileType string) (*Document, error) {
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		return extractPDF(data, size)
	case ".txt", "txt", "text/plain":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

func extractPDF(data io.ReaderAt, size int64) (*Document, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	doc := &Document{}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			doc.SkippedPages++
			continue
		}
		p := Page{Number: i}
		for _, row := range rows {
			p.Lines = append(p.Lines, joinRow(row.Content))
		}
		doc.Pages = append(doc.Pages, p)
	}
	if len(doc.Pages) == 0 && doc.SkippedPages > 0 {
		return nil, fmt.Errorf("no readable pages in PDF (%d skipped)", doc.SkippedPages)
	}
	return doc, nil
}

// joinRow glues the text runs of one row, adding a space where the gap
// between runs is wider than a fraction of the font size.
func joinRow(runs []pdf.Text) string {
	var b strings.Builder
	for i, t := range runs {
		if i > 0 {
			prev := runs[i-1]
			gap := t.X - (prev.X + prev.W)
			if gap > 0.15*t.FontSize && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return b.String()
}

func extractTXT(data io.ReaderAt, size int64) (*Document, error) {
	sc := bufio.NewScanner(io.NewSectionReader(data, 0, size))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	p := Page{Number: 1}
	for sc.Scan() {
		p.Lines = append(p.Lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read TXT: %w", err)
	}
	return &Document{Pages: []Page{p}}, nil
}
