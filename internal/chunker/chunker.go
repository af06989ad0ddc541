// Package chunker splits loader segments into overlapping fixed-size windows.
// Windows fully cover the joined text with no gaps; consecutive windows share a
// fixed overlap so clauses crossing a boundary are never lost.
package chunker

import (
	"context"
	"fmt"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// separator joins segment texts while keeping a paragraph boundary between them.
const separator = "\n\n"

// Chunker cuts rune windows of fixed size with fixed overlap.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Requires 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk joins segment texts in source order and slides a window of size runes
// advancing size-overlap per step. The final chunk may be shorter; a document
// shorter than the window yields exactly one chunk. Chunk ids are
// "<idPrefix>-<ordinal>".
func (c *Chunker) Chunk(ctx context.Context, idPrefix string, segments []domain.Segment) ([]domain.Chunk, error) {
	text, offsets := join(segments)
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	step := c.size - c.overlap
	var chunks []domain.Chunk
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		overlap := 0
		if len(chunks) > 0 {
			prevEnd := start - step + c.size
			if prevEnd > len(runes) {
				prevEnd = len(runes)
			}
			overlap = prevEnd - start
		}

		chunks = append(chunks, domain.Chunk{
			ID:       fmt.Sprintf("%s-%d", idPrefix, len(chunks)),
			Text:     string(runes[start:end]),
			Overlap:  overlap,
			Segments: segmentsInWindow(offsets, start, end),
		})

		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// segmentRange is the half-open rune span a segment occupies in the joined text.
type segmentRange struct {
	position   int
	start, end int
}

func join(segments []domain.Segment) (string, []segmentRange) {
	var (
		text    string
		offsets []segmentRange
	)
	for i, seg := range segments {
		if i > 0 {
			text += separator
		}
		start := len([]rune(text))
		text += seg.Text
		offsets = append(offsets, segmentRange{
			position: seg.Position,
			start:    start,
			end:      len([]rune(text)),
		})
	}
	return text, offsets
}

func segmentsInWindow(offsets []segmentRange, start, end int) []int {
	var positions []int
	for _, r := range offsets {
		if r.start < end && r.end > start {
			positions = append(positions, r.position)
		}
	}
	return positions
}
