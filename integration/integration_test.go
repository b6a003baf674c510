package integration

import (
	"context"
	"os"
	"testing"

	"github.com/a-h/mathagent/client"
	"github.com/a-h/mathagent/guardrail"
	"github.com/a-h/mathagent/models"
)

func newClient(t *testing.T) client.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("MATHAGENT_URL")
	if url == "" {
		url = "http://localhost:9020"
	}
	return client.New(url, os.Getenv("MATHAGENT_API_KEY"))
}

func TestQueryPostPrivacy(t *testing.T) {
	c := newClient(t)
	resp, err := c.QueryPost(context.Background(), models.QueryPostRequest{
		Text: "What is my bank password?",
	})
	if err != nil {
		t.Fatalf("failed to post query: %v", err)
	}
	if resp.Answer != guardrail.MessageInputPrivacy {
		t.Errorf("expected %q, got %q", guardrail.MessageInputPrivacy, resp.Answer)
	}
	if resp.Provenance != "guardrail" {
		t.Errorf("expected guardrail provenance, got %q", resp.Provenance)
	}
}

func TestDocumentPutAndContext(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	doc := models.Document{
		Source:   "integration#1",
		Question: "What is the derivative of x^3 with respect to x?",
		Answer:   "Using the power rule, the derivative is 3x^2.",
	}
	if _, err := c.DocumentsPut(ctx, models.DocumentsPostRequest{Document: doc}); err != nil {
		t.Fatalf("failed to put document: %v", err)
	}

	resp, err := c.ContextPost(ctx, models.ContextPostRequest{Text: doc.Question})
	if err != nil {
		t.Fatalf("failed to get context: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected at least one result")
	}
	if resp.Results[0].Source != doc.Source {
		t.Errorf("expected the nearest result to be %q, got %q", doc.Source, resp.Results[0].Source)
	}
	if !resp.Results[0].Confident {
		t.Errorf("expected an exact question match to be below the threshold, got distance %v", resp.Results[0].Distance)
	}
}

func TestFeedbackPost(t *testing.T) {
	c := newClient(t)
	resp, err := c.FeedbackPost(context.Background(), models.FeedbackPostRequest{
		Query:    "What is 2 + 2?",
		Response: "4",
		Rating:   models.RatingCorrect,
	})
	if err != nil {
		t.Fatalf("failed to post feedback: %v", err)
	}
	if resp.ID == 0 {
		t.Error("expected a feedback ID")
	}
}
