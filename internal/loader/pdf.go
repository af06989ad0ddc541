package loader

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// parsePDF emits one segment per page.
func parsePDF(data []byte, filename string) ([]domain.Segment, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}

	numPages := reader.NumPage()
	segments := make([]domain.Segment, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document; the
			// zero-segment check in Load catches fully unreadable files.
			continue
		}
		segments = append(segments, domain.Segment{
			SourceID: filename,
			Position: i - 1,
			Text:     normalizeWhitespace(text),
		})
	}
	return segments, nil
}
