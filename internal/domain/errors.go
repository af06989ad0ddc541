package domain

import "errors"

var (
	// ErrUnsupportedFormat signals a file extension no loader handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrCorruptDocument signals a document the parser could not extract text from.
	ErrCorruptDocument = errors.New("corrupt document")
	// ErrEmptyDocument signals a document with no text after normalization.
	ErrEmptyDocument = errors.New("empty document")
	// ErrEmptyIndex signals a question asked before any document was processed.
	ErrEmptyIndex = errors.New("empty index")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrBuildSuperseded signals an index build abandoned because a newer upload started.
	ErrBuildSuperseded = errors.New("index build superseded")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a text generation provider failure.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrSchemaViolation signals a generation that does not conform to the requested schema.
	ErrSchemaViolation = errors.New("schema violation")
)
