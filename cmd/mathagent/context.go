package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/a-h/mathagent/client"
	"github.com/a-h/mathagent/models"
)

type ContextCommand struct {
	ServerURL string `help:"The URL of the math agent server." env:"MATHAGENT_URL" default:"http://localhost:9020"`
	APIKey    string `help:"The API key for the math agent server." env:"MATHAGENT_API_KEY" default:""`
	Text      string `help:"The text to send."`
	Pretty    bool   `help:"Pretty print the JSON output." default:"true" negatable:""`
	LogLevel  string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ContextCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.ServerURL, c.APIKey)
	resp, err := rsc.ContextPost(ctx, models.ContextPostRequest{
		Text: c.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to get context: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
