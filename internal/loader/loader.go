// Package loader converts raw document bytes into ordered text segments with
// provenance. Loading is a pure transform: no temp files, no state.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// Loader dispatches to a format-specific parser by file extension.
type Loader struct {
	logger *zap.Logger
}

// New creates a document loader.
func New(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load parses data into ordered, whitespace-normalized segments. The declared
// type is taken from the filename extension.
func (l *Loader) Load(ctx context.Context, data []byte, filename string) ([]domain.Segment, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		segments []domain.Segment
		err      error
	)
	switch ext {
	case ".pdf":
		segments, err = parsePDF(data, filename)
	case ".docx":
		segments, err = parseDOCX(data, filename)
	case ".eml":
		segments, err = parseEML(data, filename)
	case ".txt":
		segments, err = parseTXT(data, filename)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	segments = dropEmpty(segments)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %s", domain.ErrCorruptDocument, filename)
	}

	l.logger.Debug("Document loaded",
		zap.String("file", filename),
		zap.Int("segments", len(segments)),
	)
	return segments, nil
}

// parseTXT treats every blank-line-separated block as one segment.
func parseTXT(data []byte, filename string) ([]domain.Segment, error) {
	blocks := strings.Split(string(data), "\n\n")
	segments := make([]domain.Segment, 0, len(blocks))
	for i, block := range blocks {
		segments = append(segments, domain.Segment{
			SourceID: filename,
			Position: i,
			Text:     normalizeWhitespace(block),
		})
	}
	return segments, nil
}

// normalizeWhitespace collapses whitespace runs to single spaces and trims.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dropEmpty removes segments that are empty after normalization. Survivors
// keep their parser-assigned positions: for page-based formats a skipped blank
// page must not shift the page numbers cited in answers.
func dropEmpty(segments []domain.Segment) []domain.Segment {
	kept := segments[:0]
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		kept = append(kept, seg)
	}
	return kept
}
