package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

func segs(texts ...string) []domain.Segment {
	segments := make([]domain.Segment, len(texts))
	for i, text := range texts {
		segments[i] = domain.Segment{SourceID: "doc.txt", Position: i, Text: text}
	}
	return segments
}

func TestNew_InvalidConfig(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.size, tc.overlap); err == nil {
				t.Fatalf("New(%d, %d) expected error", tc.size, tc.overlap)
			}
		})
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	c, _ := New(100, 20)
	_, err := c.Chunk(context.Background(), "d0", nil)
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestChunk_ShortDocumentYieldsOneChunk(t *testing.T) {
	c, _ := New(100, 20)
	chunks, err := c.Chunk(context.Background(), "d0", segs("short text"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "short text" {
		t.Errorf("unexpected chunk text: %q", chunks[0].Text)
	}
	if chunks[0].Overlap != 0 {
		t.Errorf("first chunk overlap = %d, want 0", chunks[0].Overlap)
	}
	if chunks[0].ID != "d0-0" {
		t.Errorf("unexpected chunk id: %q", chunks[0].ID)
	}
}

// Coverage: walking each chunk trimmed of its overlap with the previous one
// must reconstruct the joined text exactly, with no gap and no drop.
func TestChunk_FullCoverageNoGaps(t *testing.T) {
	c, _ := New(200, 20)
	segments := segs(
		strings.Repeat("policy terms and conditions ", 20),
		strings.Repeat("knee surgery coverage clause ", 15),
	)

	chunks, err := c.Chunk(context.Background(), "d0", segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rebuilt []rune
	total := 0
	for i, chunk := range chunks {
		runes := []rune(chunk.Text)
		total += len(runes)
		if i == 0 {
			rebuilt = append(rebuilt, runes...)
			continue
		}
		if chunk.Overlap > len(runes) {
			t.Fatalf("chunk %d overlap %d exceeds its length %d", i, chunk.Overlap, len(runes))
		}
		rebuilt = append(rebuilt, runes[chunk.Overlap:]...)
	}

	joined := segments[0].Text + "\n\n" + segments[1].Text
	if string(rebuilt) != joined {
		t.Fatal("chunks do not reconstruct the joined text")
	}
	if total < len([]rune(joined)) {
		t.Errorf("sum of chunk lengths %d < joined text length %d", total, len([]rune(joined)))
	}
}

func TestChunk_WindowArithmetic(t *testing.T) {
	// 450 runes, window 200, overlap 20 -> starts at 0, 180, 360.
	c, _ := New(200, 20)
	text := strings.Repeat("a", 450)

	chunks, err := c.Chunk(context.Background(), "d0", segs(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{200, 200, 90}
	wantOverlaps := []int{0, 20, 20}
	for i, chunk := range chunks {
		if got := len([]rune(chunk.Text)); got != wantLens[i] {
			t.Errorf("chunk %d length = %d, want %d", i, got, wantLens[i])
		}
		if chunk.Overlap != wantOverlaps[i] {
			t.Errorf("chunk %d overlap = %d, want %d", i, chunk.Overlap, wantOverlaps[i])
		}
	}
}

func TestChunk_MultibyteSafe(t *testing.T) {
	c, _ := New(10, 3)
	text := strings.Repeat("ü", 25)

	chunks, err := c.Chunk(context.Background(), "d0", segs(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, chunk := range chunks {
		for _, r := range chunk.Text {
			if r != 'ü' {
				t.Fatalf("chunk %d split mid-rune: %q", i, chunk.Text)
			}
		}
	}
}

func TestChunk_SegmentProvenance(t *testing.T) {
	c, _ := New(30, 5)
	segments := segs(strings.Repeat("a", 25), strings.Repeat("b", 25))

	chunks, err := c.Chunk(context.Background(), "d0", segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// First window (0..30) spans segment 0 and the start of segment 1.
	if got := chunks[0].Segments; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("chunk 0 segments = %v, want [0 1]", got)
	}
	last := chunks[len(chunks)-1]
	if len(last.Segments) != 1 || last.Segments[0] != 1 {
		t.Errorf("last chunk segments = %v, want [1]", last.Segments)
	}
}
