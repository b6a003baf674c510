// Package router answers a query by running it through a fixed sequence of
// stages: Gate, TryKB, TryWeb, NoAnswer, OutputGate. Each stage can only move
// the query forward, and every path ends in a returned answer.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/a-h/mathagent/extract"
	"github.com/a-h/mathagent/generate"
	"github.com/a-h/mathagent/guardrail"
	"github.com/a-h/mathagent/retrieval"
)

type Provenance string

const (
	ProvenanceGuardrail Provenance = "guardrail"
	ProvenanceKnowledge Provenance = "knowledge"
	ProvenanceWeb       Provenance = "web"
	ProvenanceNoAnswer  Provenance = "no-answer"
)

const Apology = "Sorry, I encountered an issue and couldn't process your request."

type Response struct {
	Text       string
	Provenance Provenance
	// Redacted is set when the output gate replaced the generated text.
	Redacted bool
	// NeedsReview is set when the output gate flagged a likely refusal. The
	// text is still returned.
	NeedsReview bool
}

type Guard interface {
	EvaluateInput(ctx context.Context, query string) guardrail.Verdict
	EvaluateOutput(answer string) guardrail.Verdict
}

type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]retrieval.ScoredDocument, error)
	Retrieve(ctx context.Context, query string) ([]retrieval.Document, error)
}

type WebContent interface {
	FetchAndExtractAll(ctx context.Context, query string) string
}

type Config struct {
	// SimilarityThreshold is the distance a knowledge base match must be
	// strictly below to be used.
	SimilarityThreshold float64

	Knowledge generate.Mode
	Web       generate.Mode
	NoAnswer  generate.Mode
}

func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 1.0,
		Knowledge:           generate.Knowledge,
		Web:                 generate.Web,
		NoAnswer:            generate.NoAnswer,
	}
}

// New creates a Router. A nil retriever disables the knowledge base stage, and
// a nil web disables web search.
func New(log *slog.Logger, config Config, guard Guard, retriever Retriever, web WebContent, generator generate.Generator) *Router {
	return &Router{
		log:       log,
		config:    config,
		guard:     guard,
		retriever: retriever,
		web:       web,
		generator: generator,
	}
}

type Router struct {
	log       *slog.Logger
	config    Config
	guard     Guard
	retriever Retriever
	web       WebContent
	generator generate.Generator
}

func (r *Router) ProcessQuery(ctx context.Context, query string) string {
	return r.Process(ctx, query).Text
}

func (r *Router) Process(ctx context.Context, query string) Response {
	log := r.log.With(slog.String("query", query))
	log.Info("processing query")

	verdict := r.guard.EvaluateInput(ctx, query)
	if !verdict.Allowed {
		log.Info("query rejected by input guardrail", slog.String("disposition", string(verdict.Disposition)))
		return Response{Text: verdict.Message, Provenance: ProvenanceGuardrail}
	}

	resp, ok := r.tryKnowledgeBase(ctx, log, query)
	if !ok {
		resp = r.tryWeb(ctx, log, query)
	}

	out := r.guard.EvaluateOutput(resp.Text)
	if !out.Allowed {
		log.Error("answer rejected by output guardrail", slog.String("provenance", string(resp.Provenance)))
		resp.Text = out.Message
		resp.Redacted = true
	}
	resp.NeedsReview = out.NeedsReview
	log.Info("query processed", slog.String("provenance", string(resp.Provenance)), slog.Bool("redacted", resp.Redacted), slog.Bool("needsReview", resp.NeedsReview))
	return resp
}

// tryKnowledgeBase makes a single attempt to answer from the knowledge base.
// Any failure is logged and reported as not ok so that web search runs next.
func (r *Router) tryKnowledgeBase(ctx context.Context, log *slog.Logger, query string) (resp Response, ok bool) {
	if r.retriever == nil {
		return resp, false
	}
	log = log.With(slog.String("stage", "knowledge"))

	matches, err := r.retriever.SimilaritySearch(ctx, query, 1)
	if err != nil {
		log.Error("knowledge base search failed", slog.Any("error", err))
		return resp, false
	}
	if len(matches) == 0 {
		log.Info("no documents found in knowledge base")
		return resp, false
	}
	best := matches[0]
	log.Info("best knowledge base match", slog.Float64("distance", best.Distance), slog.Float64("threshold", r.config.SimilarityThreshold), slog.String("source", best.Metadata.Source))
	if !(best.Distance < r.config.SimilarityThreshold) {
		log.Info("knowledge base match is not below the similarity threshold")
		return resp, false
	}

	docs, err := r.retriever.Retrieve(ctx, query)
	if err != nil {
		log.Error("knowledge base retrieval failed", slog.Any("error", err))
		return resp, false
	}
	if len(docs) == 0 {
		docs = []retrieval.Document{best.Document}
	}
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}

	answer, err := r.generator.Generate(ctx, r.config.Knowledge.Prompt(query, strings.Join(contents, "\n\n")))
	if err != nil {
		log.Error("knowledge base generation failed, falling back to web search", slog.Any("error", err))
		return resp, false
	}
	return Response{Text: answer, Provenance: ProvenanceKnowledge}, true
}

func (r *Router) tryWeb(ctx context.Context, log *slog.Logger, query string) Response {
	log = log.With(slog.String("stage", "web"))
	log.Info("proceeding to web search")

	webContext := extract.NotConfigured
	if r.web != nil {
		webContext = r.web.FetchAndExtractAll(ctx, query)
	}
	if extract.IsNoContent(webContext) {
		log.Info("web search found no usable content", slog.String("reason", webContext))
		return r.noAnswer(ctx, log, query)
	}

	answer, err := r.generator.Generate(ctx, r.config.Web.Prompt(query, webContext))
	if err != nil {
		log.Error("web generation failed", slog.Any("error", err))
		return r.noAnswer(ctx, log, query)
	}
	return Response{Text: answer, Provenance: ProvenanceWeb}
}

func (r *Router) noAnswer(ctx context.Context, log *slog.Logger, query string) Response {
	answer, err := r.generator.Generate(ctx, r.config.NoAnswer.Prompt(query, ""))
	if err != nil {
		log.Error("no-answer generation failed", slog.String("stage", "no-answer"), slog.Any("error", err))
		answer = Apology
	}
	return Response{Text: answer, Provenance: ProvenanceNoAnswer}
}
