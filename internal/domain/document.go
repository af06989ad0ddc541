package domain

// Segment is a raw extracted text unit with provenance. Produced by the loader,
// consumed by the chunker; immutable once created.
type Segment struct {
	SourceID string // originating file name
	Position int    // page number or message part index, 0-based
	Text     string // non-empty after whitespace normalization
}

// Chunk is a bounded text window cut from the joined segment text. Consecutive
// chunks of a document overlap by a fixed number of runes so that clauses
// spanning a boundary stay retrievable.
type Chunk struct {
	ID       string
	Text     string
	Overlap  int   // runes shared with the previous chunk, 0 for the first
	Segments []int // positions of the segments this chunk overlaps, provenance only
}

// Entry pairs a chunk with its embedding vector for indexing.
type Entry struct {
	Chunk  Chunk
	Vector []float32
}

// Hit is a retrieved chunk with its similarity score.
type Hit struct {
	Chunk Chunk
	Score float64
}
