package models

type ContextPostRequest struct {
	Text string `json:"text"`
}

type ContextPostResponse struct {
	// Threshold is the distance a result must be below to be used in an answer.
	Threshold float64           `json:"threshold"`
	Results   []ContextDocument `json:"results"`
}

type ContextDocument struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
	Source   string  `json:"source"`
	Question string  `json:"question"`
	// Confident is true when Distance is below Threshold.
	Confident bool `json:"confident"`
}
