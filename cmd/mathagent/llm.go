package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

type LLMFlags struct {
	Provider             string `help:"The LLM provider to use." enum:"ollama,googleai" env:"LLM_PROVIDER" default:"ollama"`
	OllamaURL            string `help:"The URL of the Ollama server." env:"OLLAMA_URL" default:"http://127.0.0.1:11434/"`
	EmbeddingModel       string `help:"The Ollama model to use for embeddings. It must produce 768 dimensional vectors." env:"EMBEDDING_MODEL" default:"nomic-embed-text"`
	ChatModel            string `help:"The Ollama model used to answer questions." env:"CHAT_MODEL" default:"mistral-nemo"`
	ClassifierModel      string `help:"The Ollama model used to classify topics. Defaults to the chat model." env:"CLASSIFIER_MODEL" default:""`
	GoogleAPIKey         string `help:"The Google AI API key." env:"GOOGLE_API_KEY" default:""`
	GoogleChatModel      string `help:"The Gemini model used to answer questions and classify topics." env:"GOOGLE_CHAT_MODEL" default:"gemini-2.0-flash"`
	GoogleEmbeddingModel string `help:"The Google AI model to use for embeddings." env:"GOOGLE_EMBEDDING_MODEL" default:"text-embedding-004"`
}

type llmClients struct {
	chat       llms.Model
	classifier llms.Model
	embedder   embeddings.Embedder
}

func (f LLMFlags) newClients(ctx context.Context, httpClient *http.Client) (c llmClients, err error) {
	switch f.Provider {
	case "googleai":
		return f.newGoogleAIClients(ctx)
	case "ollama", "":
		return f.newOllamaClients(httpClient)
	}
	return c, fmt.Errorf("unknown LLM provider %q", f.Provider)
}

func (f LLMFlags) newOllamaClients(httpClient *http.Client) (c llmClients, err error) {
	ec, err := ollama.New(
		ollama.WithModel(f.EmbeddingModel),
		ollama.WithHTTPClient(httpClient),
		ollama.WithServerURL(f.OllamaURL))
	if err != nil {
		return c, fmt.Errorf("failed to create embedder: %w", err)
	}
	if c.embedder, err = embeddings.NewEmbedder(ec); err != nil {
		return c, fmt.Errorf("failed to create embedder: %w", err)
	}
	chat, err := ollama.New(
		ollama.WithModel(f.ChatModel),
		ollama.WithHTTPClient(httpClient),
		ollama.WithServerURL(f.OllamaURL))
	if err != nil {
		return c, fmt.Errorf("failed to create LLM: %w", err)
	}
	c.chat, c.classifier = chat, chat
	if f.ClassifierModel != "" && f.ClassifierModel != f.ChatModel {
		c.classifier, err = ollama.New(
			ollama.WithModel(f.ClassifierModel),
			ollama.WithHTTPClient(httpClient),
			ollama.WithServerURL(f.OllamaURL))
		if err != nil {
			return c, fmt.Errorf("failed to create classifier LLM: %w", err)
		}
	}
	return c, nil
}

func (f LLMFlags) newGoogleAIClients(ctx context.Context) (c llmClients, err error) {
	if f.GoogleAPIKey == "" {
		return c, fmt.Errorf("the googleai provider requires a Google AI API key")
	}
	g, err := googleai.New(ctx,
		googleai.WithAPIKey(f.GoogleAPIKey),
		googleai.WithDefaultModel(f.GoogleChatModel),
		googleai.WithDefaultEmbeddingModel(f.GoogleEmbeddingModel))
	if err != nil {
		return c, fmt.Errorf("failed to create Google AI client: %w", err)
	}
	if c.embedder, err = embeddings.NewEmbedder(g); err != nil {
		return c, fmt.Errorf("failed to create embedder: %w", err)
	}
	c.chat, c.classifier = g, g
	return c, nil
}
