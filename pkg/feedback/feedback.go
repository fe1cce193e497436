// Package feedback defines the evaluation records returned by review
// collaborators and the aggregation logic the convergence controller
// consumes.
package feedback

import "strings"

// approvalVocabulary is the fixed positive-sentiment vocabulary an
// assessment is matched against.
var approvalVocabulary = []string{"good", "optimal", "excellent", "satisfactory"}

// Record is one reviewer's evaluation of an allocation attempt.
type Record struct {
	Role                   string   `json:"role"`
	Assessment             string   `json:"assessment"`
	Recommendations        []string `json:"recommendations,omitempty"`
	Concerns               []string `json:"concerns,omitempty"`
	MathematicallyVerified bool     `json:"mathematicallyVerified"`
	AlternativesTested     bool     `json:"alternativesTested"`
}

// DefaultRecord is the safe degradation used when a reviewer is unavailable
// or returns unusable data. It rates the attempt acceptable without
// approving it, and leaves the cost-improvement fallback reachable by
// marking alternatives as explored.
func DefaultRecord(role string) Record {
	return Record{
		Role:               role,
		Assessment:         "acceptable",
		Recommendations:    []string{"review allocation for improvements"},
		Concerns:           []string{"reviewer evaluation unavailable"},
		AlternativesTested: true,
	}
}

// Approves reports whether the assessment matches the positive-sentiment
// vocabulary.
func (r Record) Approves() bool {
	assessment := strings.ToLower(r.Assessment)
	for _, word := range approvalVocabulary {
		if strings.Contains(assessment, word) {
			return true
		}
	}
	return false
}

// Round is the joined set of reviewer records for a single attempt.
type Round []Record

// Approvals counts the reviewers whose assessment matches the approval
// vocabulary.
func (r Round) Approvals() int {
	count := 0
	for _, record := range r {
		if record.Approves() {
			count++
		}
	}
	return count
}

// MathematicallyVerified reports whether any reviewer flagged the attempt
// as mathematically verified optimal.
func (r Round) MathematicallyVerified() bool {
	for _, record := range r {
		if record.MathematicallyVerified {
			return true
		}
	}
	return false
}

// AlternativesTested reports whether alternatives were explicitly explored.
// An empty round is vacuously tested so that runs without reviewers can
// still converge on cost improvement.
func (r Round) AlternativesTested() bool {
	if len(r) == 0 {
		return true
	}
	for _, record := range r {
		if record.AlternativesTested {
			return true
		}
	}
	return false
}
