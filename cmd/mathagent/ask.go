package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/a-h/mathagent/client"
	"github.com/a-h/mathagent/models"
)

type AskCommand struct {
	ServerURL string `help:"The URL of the math agent server." env:"MATHAGENT_URL" default:"http://localhost:9020"`
	APIKey    string `help:"The API key for the math agent server." env:"MATHAGENT_API_KEY" default:""`
	Question  string `arg:"" help:"The question to ask."`
	LogLevel  string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c AskCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	resp, err := client.New(c.ServerURL, c.APIKey).QueryPost(ctx, models.QueryPostRequest{
		Text: c.Question,
	})
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	log.Info("answer received", slog.String("provenance", resp.Provenance), slog.Bool("redacted", resp.Redacted))
	fmt.Println(resp.Answer)
	return nil
}
