package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Serve   ServeCommand   `cmd:"serve" help:"Start the math agent server."`
	Import  ImportCommand  `cmd:"import" help:"Import question and answer pairs into a math agent server."`
	Ask     AskCommand     `cmd:"ask" help:"Ask the math agent a question."`
	Context ContextCommand `cmd:"context" help:"Get knowledge base matches for a piece of text."`
	Chat    ChatCommand    `cmd:"chat" help:"Chat with the math agent."`
	Version VersionCommand `cmd:"version" help:"Print the version of the math agent."`
}

func main() {
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
