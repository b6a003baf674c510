package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/mathagent/auth"
	"github.com/a-h/mathagent/models"
	"github.com/a-h/mathagent/router"
	"github.com/a-h/respond"
)

type Processor interface {
	Process(ctx context.Context, query string) router.Response
}

type Recorder interface {
	RecordQuery(provenance string, redacted bool, d time.Duration)
	RecordNeedsReview(provenance string)
}

func New(log *slog.Logger, processor Processor, recorder Recorder) Handler {
	return Handler{
		log:       log,
		processor: processor,
		recorder:  recorder,
		now:       time.Now,
	}
}

type Handler struct {
	log       *slog.Logger
	processor Processor
	recorder  Recorder
	now       func() time.Time
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		respond.WithError(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.QueryPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.WithError(w, "text is required", http.StatusBadRequest)
		return
	}

	start := h.now()
	resp := h.processor.Process(r.Context(), req.Text)
	h.recorder.RecordQuery(string(resp.Provenance), resp.Redacted, h.now().Sub(start))
	if resp.NeedsReview {
		h.recorder.RecordNeedsReview(string(resp.Provenance))
	}
	h.log.Info("query answered", slog.String("user", user), slog.String("provenance", string(resp.Provenance)), slog.Bool("redacted", resp.Redacted))

	respond.WithJSON(w, models.QueryPostResponse{
		Answer:      resp.Text,
		Provenance:  string(resp.Provenance),
		Redacted:    resp.Redacted,
		NeedsReview: resp.NeedsReview,
	}, http.StatusOK)
}
