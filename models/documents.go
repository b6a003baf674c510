package models

type DocumentsPostRequest struct {
	Document Document `json:"document"`
}

// Document is a question and answer pair in the knowledge base.
type Document struct {
	Source   string `json:"source"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type DocumentsPostResponse struct {
	ID int64 `json:"id"`
}
