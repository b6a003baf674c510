package models

import "slices"

type Rating string

const (
	RatingCorrect          Rating = "Correct"
	RatingIncorrect        Rating = "Incorrect"
	RatingNeedsImprovement Rating = "Needs Improvement"
)

var Ratings = []Rating{RatingCorrect, RatingIncorrect, RatingNeedsImprovement}

func (r Rating) Valid() bool {
	return slices.Contains(Ratings, r)
}

type FeedbackPostRequest struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	Rating   Rating `json:"rating"`
	Comments string `json:"comments,omitempty"`
}

type FeedbackPostResponse struct {
	ID int64 `json:"id"`
}
