package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/mathagent/auth"
	"github.com/a-h/mathagent/models"
	"github.com/a-h/mathagent/retrieval"
	"github.com/a-h/respond"
)

type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]retrieval.ScoredDocument, error)
}

// New creates a handler that returns the knowledge base documents nearest to
// the query text. A nil searcher returns no results.
func New(log *slog.Logger, searcher Searcher, maxContextDocs int, threshold float64) Handler {
	return Handler{
		log:            log,
		searcher:       searcher,
		maxContextDocs: maxContextDocs,
		threshold:      threshold,
	}
}

type Handler struct {
	log            *slog.Logger
	searcher       Searcher
	maxContextDocs int
	threshold      float64
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.GetUser(r); !ok {
		respond.WithError(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.ContextPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}

	var docs []retrieval.ScoredDocument
	if req.Text != "" && h.searcher != nil {
		docs, err = h.searcher.SimilaritySearch(r.Context(), req.Text, h.maxContextDocs)
		if err != nil {
			h.log.Error("failed to find nearest documents", slog.Any("error", err))
			respond.WithError(w, "failed to find nearest documents", http.StatusInternalServerError)
			return
		}
	}

	cpr := models.ContextPostResponse{
		Threshold: h.threshold,
		Results:   make([]models.ContextDocument, len(docs)),
	}
	for i, doc := range docs {
		cpr.Results[i] = models.ContextDocument{
			Text:      doc.Content,
			Distance:  doc.Distance,
			Source:    doc.Metadata.Source,
			Question:  doc.Metadata.Question,
			Confident: doc.Distance < h.threshold,
		}
	}

	respond.WithJSON(w, cpr, http.StatusOK)
}
