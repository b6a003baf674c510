package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error is returned when the underlying model call fails, including timeouts.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generate: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(llm llms.Model, timeout time.Duration, opts ...llms.CallOption) *LLM {
	return &LLM{
		llm:     llm,
		timeout: timeout,
		opts:    opts,
	}
}

// LLM adapts a langchaingo model to a single prompt-in, text-out call.
type LLM struct {
	llm     llms.Model
	timeout time.Duration
	opts    []llms.CallOption
}

func (l *LLM) Generate(ctx context.Context, prompt string) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	completion, err := llms.GenerateFromSinglePrompt(ctx, l.llm, prompt, l.opts...)
	if err != nil {
		return "", &Error{Err: err}
	}
	return completion, nil
}
