package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/mathagent/auth"
	"github.com/a-h/mathagent/kb"
	"github.com/a-h/mathagent/models"
	"github.com/a-h/respond"
)

type Putter interface {
	Put(ctx context.Context, r kb.Record) (id int64, err error)
}

type Recorder interface {
	RecordDocument()
}

func New(log *slog.Logger, putter Putter, recorder Recorder) Handler {
	return Handler{
		log:      log,
		putter:   putter,
		recorder: recorder,
	}
}

type Handler struct {
	log      *slog.Logger
	putter   Putter
	recorder Recorder
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		respond.WithError(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.DocumentsPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	d := req.Document
	if strings.TrimSpace(d.Source) == "" || strings.TrimSpace(d.Question) == "" || strings.TrimSpace(d.Answer) == "" {
		respond.WithError(w, "source, question and answer are required", http.StatusBadRequest)
		return
	}

	var resp models.DocumentsPostResponse
	resp.ID, err = h.putter.Put(r.Context(), kb.Record{
		Source:   d.Source,
		Question: d.Question,
		Answer:   d.Answer,
	})
	if err != nil {
		h.log.Error("document put failed", slog.Any("error", err))
		respond.WithError(w, "document put failed", http.StatusInternalServerError)
		return
	}
	h.recorder.RecordDocument()
	h.log.Info("document added", slog.String("user", user), slog.String("source", d.Source), slog.Int64("id", resp.ID))

	respond.WithJSON(w, resp, http.StatusOK)
}
