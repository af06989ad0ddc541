package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// parseDOCX emits one segment per non-empty paragraph. DOCX has no page
// numbers, so positions are paragraph ordinals.
func parseDOCX(data []byte, filename string) ([]domain.Segment, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}
	defer r.Close()

	paragraphs := extractParagraphs(r.Editable().GetContent())
	segments := make([]domain.Segment, 0, len(paragraphs))
	for i, p := range paragraphs {
		segments = append(segments, domain.Segment{
			SourceID: filename,
			Position: i,
			Text:     normalizeWhitespace(p),
		})
	}
	return segments, nil
}

// extractParagraphs pulls text runs out of the document.xml payload, joining
// <w:t> runs within each <w:p> paragraph.
func extractParagraphs(content string) []string {
	var paragraphs []string
	for _, para := range strings.Split(content, "</w:p>") {
		var text strings.Builder
		parts := strings.Split(para, "<w:t")
		for i, part := range parts {
			if i == 0 {
				continue
			}
			// Skip the rest of the opening tag (attributes like xml:space).
			closeIdx := strings.Index(part, ">")
			if closeIdx < 0 {
				continue
			}
			part = part[closeIdx+1:]
			if endIdx := strings.Index(part, "</w:t>"); endIdx >= 0 {
				text.WriteString(part[:endIdx])
			}
		}
		if text.Len() > 0 {
			paragraphs = append(paragraphs, text.String())
		}
	}
	return paragraphs
}
