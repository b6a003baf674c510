package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	prompts []string
	content string
	err     error
	wait    bool
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, tc.Text)
			}
		}
	}
	if m.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.content}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLLMGenerate(t *testing.T) {
	t.Run("the completion is returned", func(t *testing.T) {
		m := &fakeModel{content: "x = 2"}
		actual, err := New(m, time.Second).Generate(context.Background(), "solve x+1=3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual != "x = 2" {
			t.Errorf("expected %q, got %q", "x = 2", actual)
		}
		if len(m.prompts) != 1 || m.prompts[0] != "solve x+1=3" {
			t.Errorf("unexpected prompts: %v", m.prompts)
		}
	})
	t.Run("model failures are wrapped in a generation error", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		_, err := New(&fakeModel{err: cause}, time.Second).Generate(context.Background(), "prompt")
		var ge *Error
		if !errors.As(err, &ge) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("expected the cause to be unwrapped")
		}
	})
	t.Run("timeouts are generation errors", func(t *testing.T) {
		_, err := New(&fakeModel{wait: true}, time.Millisecond).Generate(context.Background(), "prompt")
		var ge *Error
		if !errors.As(err, &ge) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestModePrompt(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		contains []string
		excludes []string
	}{
		{
			name:     "knowledge prompts include the context and question",
			mode:     Knowledge,
			contains: []string{"Context from Knowledge Base:\nthe context", "User Question: the question", "based *only* on the provided context"},
		},
		{
			name:     "web prompts include the search results",
			mode:     Web,
			contains: []string{"Web Search Results:\nthe context", "User Question: the question"},
		},
		{
			name:     "no-answer prompts ignore the context",
			mode:     NoAnswer,
			contains: []string{"User Question: the question", "cannot provide an answer"},
			excludes: []string{"the context", "%!"},
		},
		{
			name:     "topic classification asks for yes or no",
			mode:     TopicClassification,
			contains: []string{"Query: 'the question'", "'yes' or 'no'"},
			excludes: []string{"%!"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := tt.mode.Prompt("the question", "the context")
			for _, s := range tt.contains {
				if !strings.Contains(actual, s) {
					t.Errorf("expected prompt to contain %q, got:\n%s", s, actual)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(actual, s) {
					t.Errorf("expected prompt not to contain %q, got:\n%s", s, actual)
				}
			}
		})
	}
}

func TestNewMode(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		expectError bool
	}{
		{
			name:     "question and context are accepted",
			template: "Context: %[2]s\nQuestion: %[1]s",
		},
		{
			name:     "question only is accepted",
			template: "Question: %[1]s",
		},
		{
			name:        "templates must reference the question",
			template:    "Context: %[2]s",
			expectError: true,
		},
		{
			name:        "stray verbs are rejected",
			template:    "Question: %[1]s is 50% done",
			expectError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMode("custom", tt.template)
			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestModeUsesContext(t *testing.T) {
	for _, m := range []Mode{Knowledge, Web} {
		if !m.UsesContext() {
			t.Errorf("%s: expected the template to use the context", m.Name)
		}
	}
	for _, m := range []Mode{NoAnswer, TopicClassification} {
		if m.UsesContext() {
			t.Errorf("%s: expected the template not to use the context", m.Name)
		}
	}
}
