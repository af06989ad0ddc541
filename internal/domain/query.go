package domain

import "strings"

// Unknown marks a query field the parser could not extract. Fields are never
// guessed: anything not explicitly present in the question stays Unknown.
const Unknown = "unknown"

// ParsedQuery is the structured field mapping extracted from a free-text
// question. All fields hold either an extracted value or Unknown.
type ParsedQuery struct {
	Age            string `json:"age"`
	Procedure      string `json:"procedure"`
	PolicyDuration string `json:"policy_duration"`
	Location       string `json:"location"`
}

// AllUnknown returns a ParsedQuery with every field set to Unknown. Used as the
// fallback when extraction fails; a query with no structure is still answerable
// through retrieval alone.
func AllUnknown() ParsedQuery {
	return ParsedQuery{
		Age:            Unknown,
		Procedure:      Unknown,
		PolicyDuration: Unknown,
		Location:       Unknown,
	}
}

// Normalize replaces empty or whitespace-only fields with Unknown.
func (q ParsedQuery) Normalize() ParsedQuery {
	norm := func(s string) string {
		s = strings.TrimSpace(s)
		if s == "" {
			return Unknown
		}
		return s
	}
	return ParsedQuery{
		Age:            norm(q.Age),
		Procedure:      norm(q.Procedure),
		PolicyDuration: norm(q.PolicyDuration),
		Location:       norm(q.Location),
	}
}

// IsAllUnknown reports whether no field was extracted.
func (q ParsedQuery) IsAllUnknown() bool {
	return q.Age == Unknown && q.Procedure == Unknown &&
		q.PolicyDuration == Unknown && q.Location == Unknown
}
