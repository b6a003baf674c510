// Package guardrail decides whether a query may enter the answer pipeline and
// whether a generated answer may leave it.
package guardrail

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/a-h/mathagent/generate"
)

type Disposition string

const (
	Valid       Disposition = "valid"
	Greeting    Disposition = "greeting"
	OutOfScope  Disposition = "out-of-scope"
	PrivacyRisk Disposition = "privacy-risk"
)

const (
	MessageValid         = "Input is valid."
	MessageInputPrivacy  = "Input contains potentially sensitive information. Please rephrase your question."
	MessageGreeting      = "Hello! I am a Math Professor Agent. Please ask me a math-related question."
	MessageOutOfScope    = "My expertise is in mathematics and education. Please ask a relevant question."
	MessageOutputPrivacy = "Sorry, I cannot provide a response containing potentially sensitive information."
)

type Verdict struct {
	Allowed     bool
	Disposition Disposition
	Message     string
	// NeedsReview flags a likely refusal in an answer. It never changes Allowed.
	NeedsReview bool
}

func New(log *slog.Logger, classifier generate.Generator, config Config) *Engine {
	return &Engine{
		log:        log,
		classifier: classifier,
		config:     config,
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	log        *slog.Logger
	classifier generate.Generator
	config     Config
}

func (e *Engine) EvaluateInput(ctx context.Context, query string) Verdict {
	lower := strings.ToLower(query)

	if keyword, ok := containsAny(lower, e.config.PrivacyKeywords); ok {
		e.log.Warn("input guardrail triggered", slog.String("check", "privacy"), slog.String("keyword", keyword))
		return Verdict{Disposition: PrivacyRisk, Message: MessageInputPrivacy}
	}

	if !e.isMathTopic(ctx, query, lower) {
		if _, ok := containsAnyPhrase(lower, e.config.Greetings); ok {
			e.log.Info("input guardrail handled greeting", slog.String("query", query))
			return Verdict{Disposition: Greeting, Message: MessageGreeting}
		}
		e.log.Warn("input guardrail triggered", slog.String("check", "topic"), slog.String("query", query))
		return Verdict{Disposition: OutOfScope, Message: MessageOutOfScope}
	}

	e.log.Info("input guardrail passed", slog.String("query", query))
	return Verdict{Allowed: true, Disposition: Valid, Message: MessageValid}
}

func (e *Engine) isMathTopic(ctx context.Context, query, lower string) bool {
	if e.classifier != nil {
		decision, err := e.classifier.Generate(ctx, e.classification().Prompt(query, ""))
		if err == nil {
			decision = strings.ToLower(strings.TrimSpace(decision))
			e.log.Info("topic classified", slog.String("query", query), slog.String("decision", decision))
			return strings.Contains(decision, "yes")
		}
		e.log.Error("topic classification failed, falling back to keywords", slog.String("query", query), slog.Any("error", err))
	}
	if _, ok := containsAny(lower, e.config.AllowedTopics); ok {
		return true
	}
	_, ok := containsAny(lower, e.config.MathIndicators)
	return ok
}

func (e *Engine) classification() generate.Mode {
	if e.config.Classification.Name == "" {
		return generate.TopicClassification
	}
	return e.config.Classification
}

func (e *Engine) EvaluateOutput(answer string) Verdict {
	lower := strings.ToLower(answer)

	if keyword, ok := containsAny(lower, e.config.PrivacyKeywords); ok {
		e.log.Error("output guardrail triggered", slog.String("check", "privacy"), slog.String("keyword", keyword), slog.String("answer", truncate(answer, 100)))
		return Verdict{Disposition: PrivacyRisk, Message: MessageOutputPrivacy}
	}

	v := Verdict{Allowed: true, Disposition: Valid, Message: answer}
	if _, ok := containsAny(lower, e.config.RefusalPhrases); ok && len(answer) < e.config.RefusalMaxLength {
		e.log.Warn("potential refusal detected in output", slog.String("answer", truncate(answer, 100)))
		v.NeedsReview = true
	}
	return v
}

func containsAny(s string, substrings []string) (match string, ok bool) {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return sub, true
		}
	}
	return "", false
}

// containsAnyPhrase matches whole words only, so "hi" matches "hi there" but not "this".
func containsAnyPhrase(s string, phrases []string) (match string, ok bool) {
	padded := " " + strings.Join(words(s), " ") + " "
	for _, phrase := range phrases {
		if strings.Contains(padded, " "+strings.Join(words(phrase), " ")+" ") {
			return phrase, true
		}
	}
	return "", false
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
