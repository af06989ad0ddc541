package domain

// Decision is the outcome of a structured answer.
type Decision string

const (
	DecisionApproved      Decision = "approved"
	DecisionRejected      Decision = "rejected"
	DecisionNeedsMoreInfo Decision = "needs-more-info"
)

// Valid reports whether d is one of the three allowed decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionNeedsMoreInfo:
		return true
	}
	return false
}

// Answer is the validated structured record returned per question. The JSON
// shape is a bit-exact contract with both the model and the API consumer.
type Answer struct {
	Decision      Decision `json:"decision"`
	Amount        *float64 `json:"amount"`
	Justification string   `json:"justification"`
	SourceChunks  []string `json:"source_chunks"`
}
