package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/mathagent/auth"
	"github.com/a-h/mathagent/db"
	"github.com/a-h/mathagent/models"
	"github.com/a-h/respond"
)

type Store interface {
	FeedbackPut(ctx context.Context, f db.Feedback) (id int64, err error)
}

type Recorder interface {
	RecordFeedback(rating string)
}

func New(log *slog.Logger, store Store, recorder Recorder) Handler {
	return Handler{
		log:      log,
		store:    store,
		recorder: recorder,
		now:      time.Now,
	}
}

type Handler struct {
	log      *slog.Logger
	store    Store
	recorder Recorder
	now      func() time.Time
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		respond.WithError(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.FeedbackPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if !req.Rating.Valid() {
		respond.WithError(w, "rating must be one of Correct, Incorrect or Needs Improvement", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respond.WithError(w, "query is required", http.StatusBadRequest)
		return
	}

	var resp models.FeedbackPostResponse
	resp.ID, err = h.store.FeedbackPut(r.Context(), db.Feedback{
		CreatedAt: h.now().UTC(),
		User:      user,
		Query:     req.Query,
		Response:  req.Response,
		Rating:    string(req.Rating),
		Comments:  req.Comments,
	})
	if err != nil {
		h.log.Error("feedback put failed", slog.Any("error", err))
		respond.WithError(w, "feedback put failed", http.StatusInternalServerError)
		return
	}
	h.recorder.RecordFeedback(string(req.Rating))

	respond.WithJSON(w, resp, http.StatusOK)
}
