package models

type QueryPostRequest struct {
	// Text of the query.
	Text string `json:"text"`
}

type QueryPostResponse struct {
	Answer string `json:"answer"`
	// Provenance is one of guardrail, knowledge, web or no-answer.
	Provenance string `json:"provenance"`
	// Redacted is true when the answer was replaced by the output guardrail.
	Redacted bool `json:"redacted"`
	// NeedsReview is true when the answer looks like a refusal.
	NeedsReview bool `json:"needsReview,omitempty"`
}
