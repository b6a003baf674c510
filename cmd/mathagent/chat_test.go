package main

import (
	"context"
	"errors"
	"testing"

	"github.com/a-h/mathagent/models"
	"github.com/google/go-cmp/cmp"
)

type fakeAgent struct {
	answer   models.QueryPostResponse
	err      error
	queries  []string
	feedback []models.FeedbackPostRequest
}

func (a *fakeAgent) QueryPost(ctx context.Context, req models.QueryPostRequest) (models.QueryPostResponse, error) {
	a.queries = append(a.queries, req.Text)
	return a.answer, a.err
}

func (a *fakeAgent) FeedbackPost(ctx context.Context, req models.FeedbackPostRequest) (models.FeedbackPostResponse, error) {
	a.feedback = append(a.feedback, req)
	return models.FeedbackPostResponse{ID: int64(len(a.feedback))}, nil
}

func TestParseFeedbackCommand(t *testing.T) {
	tests := []struct {
		line             string
		expectedRating   models.Rating
		expectedComments string
		expectedOK       bool
	}{
		{line: "/correct", expectedRating: models.RatingCorrect, expectedOK: true},
		{line: "/incorrect the sign is wrong", expectedRating: models.RatingIncorrect, expectedComments: "the sign is wrong", expectedOK: true},
		{line: "/improve  show more steps ", expectedRating: models.RatingNeedsImprovement, expectedComments: "show more steps", expectedOK: true},
		{line: "what is /correct?", expectedOK: false},
		{line: "/corrected", expectedOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			rating, comments, ok := parseFeedbackCommand(tt.line)
			if rating != tt.expectedRating || comments != tt.expectedComments || ok != tt.expectedOK {
				t.Errorf("expected (%q, %q, %v), got (%q, %q, %v)", tt.expectedRating, tt.expectedComments, tt.expectedOK, rating, comments, ok)
			}
		})
	}
}

func TestChatSession(t *testing.T) {
	ctx := context.Background()

	t.Run("feedback applies to the last answer", func(t *testing.T) {
		agent := &fakeAgent{answer: models.QueryPostResponse{Answer: "x = 4", Provenance: "knowledge"}}
		s := newChatSession(agent)

		for _, line := range []string{"Solve 2x = 8", "/improve show the division step"} {
			if err := s.handle(ctx, line); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		expected := []models.FeedbackPostRequest{
			{Query: "Solve 2x = 8", Response: "x = 4", Rating: models.RatingNeedsImprovement, Comments: "show the division step"},
		}
		if diff := cmp.Diff(expected, agent.feedback); diff != "" {
			t.Error(diff)
		}
		last := s.messages[len(s.messages)-1]
		if last.Type != chatMessageTypeSystem {
			t.Errorf("expected a confirmation message, got %+v", last)
		}
		answer := s.messages[len(s.messages)-2]
		if diff := cmp.Diff(chatMessage{Type: chatMessageTypeAI, Content: "x = 4", Provenance: "knowledge"}, answer); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("feedback before any answer is not sent", func(t *testing.T) {
		agent := &fakeAgent{}
		s := newChatSession(agent)
		if err := s.handle(ctx, "/correct"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(agent.feedback) != 0 {
			t.Errorf("expected no feedback, got %v", agent.feedback)
		}
	})
	t.Run("improvement feedback requires a comment", func(t *testing.T) {
		agent := &fakeAgent{answer: models.QueryPostResponse{Answer: "x = 4"}}
		s := newChatSession(agent)
		_ = s.handle(ctx, "Solve 2x = 8")
		if err := s.handle(ctx, "/improve"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(agent.feedback) != 0 {
			t.Errorf("expected no feedback, got %v", agent.feedback)
		}
	})
	t.Run("query errors are returned", func(t *testing.T) {
		agent := &fakeAgent{err: errors.New("connection refused")}
		s := newChatSession(agent)
		if err := s.handle(ctx, "Solve 2x = 8"); err == nil {
			t.Error("expected error, got nil")
		}
	})
}
