package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikhilbhutani/lifereview/pkg/textextract"
)

// ExtractQuestions reads the document at path and returns its question lines.
func ExtractQuestions(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}

	doc, err := textextract.Extract(f, info.Size(), filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return questions(doc.Lines()), nil
}

// QuestionLines keeps every trimmed line that contains a question mark and is
// longer than three characters, in document order.
func QuestionLines(text string) []string {
	return questions(strings.Split(text, "\n"))
}

func questions(lines []string) []string {
	out := []string{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "?") && len(line) > 3 {
			out = append(out, line)
		}
	}
	return out
}
