// Package parser extracts plain text from source documents ahead of
// chunking and indexing.
package parser

import (
	"fmt"
	"os"
	"strings"

	"askdoc/llm"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText extracts text from a PDF file, starting at the 1-based
// startPage and running through the last page.
//
// Failure modes are distinct so ingestion can report them per file:
// llm.ErrInvalidArgument for a bad path or non-positive start page,
// llm.ErrNotFound for a missing file, llm.ErrInvalidStartPage when the
// start page lies past the document's end, and llm.ErrEmptyDocument when
// no page yields text.
func ExtractPDFText(filePath string, startPage int) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("%w: file path must not be empty", llm.ErrInvalidArgument)
	}
	if startPage < 1 {
		return "", fmt.Errorf("%w: start page must be a positive number", llm.ErrInvalidArgument)
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: file %q", llm.ErrNotFound, filePath)
		}
		return "", fmt.Errorf("failed to stat %q: %w", filePath, err)
	}

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read PDF %q: %v", llm.ErrInvalidArgument, filePath, err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	if startPage > numPages {
		return "", fmt.Errorf("%w: start page %d, document has %d pages", llm.ErrInvalidStartPage, startPage, numPages)
	}

	var parts []string
	for pageNum := startPage; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %q", llm.ErrEmptyDocument, filePath)
	}
	return text, nil
}
