package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/a-h/mathagent/auth"
	"github.com/a-h/mathagent/db"
	"github.com/a-h/mathagent/extract"
	"github.com/a-h/mathagent/generate"
	"github.com/a-h/mathagent/guardrail"
	contextpost "github.com/a-h/mathagent/handlers/context/post"
	documentspost "github.com/a-h/mathagent/handlers/documents/post"
	feedbackpost "github.com/a-h/mathagent/handlers/feedback/post"
	querypost "github.com/a-h/mathagent/handlers/query/post"
	"github.com/a-h/mathagent/kb"
	"github.com/a-h/mathagent/metrics"
	"github.com/a-h/mathagent/retrieval"
	"github.com/a-h/mathagent/router"
	"github.com/a-h/mathagent/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rqlite/gorqlite"
	"github.com/rs/cors"
	"github.com/tmc/langchaingo/llms"
)

type ServeCommand struct {
	RqliteURL string   `help:"The URL of the rqlite server." env:"RQLITE_URL" default:"http://localhost:4001"`
	LLM       LLMFlags `embed:"" prefix:""`

	Temperature float64       `help:"The sampling temperature used to answer questions." env:"TEMPERATURE" default:"0.5"`
	LLMTimeout  time.Duration `help:"The time allowed for each LLM call." env:"LLM_TIMEOUT" default:"2m"`

	KnowledgePrompt      string `help:"A file containing the prompt used to answer from the knowledge base." env:"KNOWLEDGE_PROMPT" default:""`
	WebPrompt            string `help:"A file containing the prompt used to answer from web search results." env:"WEB_PROMPT" default:""`
	NoAnswerPrompt       string `help:"A file containing the prompt used when no answer was found." env:"NO_ANSWER_PROMPT" default:""`
	ClassificationPrompt string `help:"A file containing the prompt used to classify the topic of a query." env:"CLASSIFICATION_PROMPT" default:""`
	GuardrailsFile       string `help:"A YAML file of guardrail keyword lists. Uses the built-in lists if empty." env:"GUARDRAILS_FILE" default:""`

	Index               string        `help:"The name of the knowledge base index." env:"INDEX" default:"jee_math"`
	BootstrapCSV        string        `help:"A question,answer CSV used to build the knowledge base if the index is empty." env:"BOOTSTRAP_CSV" default:""`
	SimilarityThreshold float64       `help:"Knowledge base matches must have an L2 distance below this value to be used." env:"SIMILARITY_THRESHOLD" default:"1.0"`
	TopK                int           `help:"The number of knowledge base documents used to answer a question." env:"TOP_K" default:"3"`
	MaxContextDocs      int           `help:"The maximum number of documents returned by the context endpoint." env:"MAX_CONTEXT_DOCS" default:"5"`
	RetrievalTimeout    time.Duration `help:"The time allowed for each knowledge base search." env:"RETRIEVAL_TIMEOUT" default:"30s"`

	TavilyURL       string        `help:"The URL of the Tavily search API." env:"TAVILY_URL" default:"https://api.tavily.com"`
	TavilyAPIKey    string        `help:"The Tavily API key. Web search is disabled if empty." env:"TAVILY_API_KEY" default:""`
	MaxWebResults   int           `help:"The maximum number of web search results to use." env:"MAX_WEB_RESULTS" default:"3"`
	SearchTimeout   time.Duration `help:"The time allowed for each web search." env:"SEARCH_TIMEOUT" default:"30s"`
	FetchTimeout    time.Duration `help:"The time allowed to fetch each web page." env:"FETCH_TIMEOUT" default:"5s"`
	MaxExtractChars int           `help:"The maximum number of characters extracted from each web page." env:"MAX_EXTRACT_CHARS" default:"1500"`

	ListenAddr  string `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:9020"`
	TLSCertFile string `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile  string `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	APIKeysFile string `help:"A JSON or YAML map of API keys to usernames. Authentication is disabled if empty." env:"API_KEYS_FILE" default:""`
	LogLevel    string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func readFileOrDefault(filename, defaultContent string) (string, error) {
	if filename == "" {
		return defaultContent, nil
	}
	contents, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return string(contents), nil
}

// modeOrDefault returns def unless filename contains an override template.
func modeOrDefault(filename string, def generate.Mode) (generate.Mode, error) {
	template, err := readFileOrDefault(filename, "")
	if err != nil || template == "" {
		return def, err
	}
	m, err := generate.NewMode(def.Name, template)
	if err != nil {
		return def, fmt.Errorf("invalid prompt template in %s: %w", filename, err)
	}
	if def.UsesContext() && !m.UsesContext() {
		return def, fmt.Errorf("invalid prompt template in %s: %s template must reference the context with %%[2]s", filename, def.Name)
	}
	return m, nil
}

func loadCSVFile(log *slog.Logger, name string) (records []kb.Record, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()
	records, skipped, err := kb.LoadCSV(f, filepath.Base(name))
	if err != nil {
		return nil, err
	}
	log.Info("loaded CSV", slog.String("file", name), slog.Int("records", len(records)), slog.Int("skipped", skipped))
	return records, nil
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	routerConfig := router.DefaultConfig()
	routerConfig.SimilarityThreshold = c.SimilarityThreshold
	if routerConfig.Knowledge, err = modeOrDefault(c.KnowledgePrompt, generate.Knowledge); err != nil {
		return err
	}
	if routerConfig.Web, err = modeOrDefault(c.WebPrompt, generate.Web); err != nil {
		return err
	}
	if routerConfig.NoAnswer, err = modeOrDefault(c.NoAnswerPrompt, generate.NoAnswer); err != nil {
		return err
	}
	guardConfig, err := guardrail.LoadConfig(c.GuardrailsFile)
	if err != nil {
		return err
	}
	if guardConfig.Classification, err = modeOrDefault(c.ClassificationPrompt, generate.TopicClassification); err != nil {
		return err
	}

	log.Info("connecting to database", slog.String("url", c.RqliteURL))
	databaseURL, err := db.ParseRqliteURL(c.RqliteURL)
	if err != nil {
		return fmt.Errorf("failed to parse rqlite URL: %w", err)
	}
	log.Info("opening database connection", slog.String("url", databaseURL.DataSourceName()))
	conn, err := gorqlite.Open(databaseURL.DataSourceName())
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()
	queries := db.New(conn)

	log.Info("migrating database schema", slog.String("url", databaseURL.MigrateDatabaseURL()))
	version, err := db.Migrate(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("database schema migrated", slog.Any("version", version))

	log.Info("creating LLM clients", slog.String("provider", c.LLM.Provider))
	clients, err := c.LLM.newClients(ctx, &http.Client{})
	if err != nil {
		return err
	}
	answerer := generate.New(clients.chat, c.LLMTimeout, llms.WithTemperature(c.Temperature))
	classifier := generate.New(clients.classifier, c.LLMTimeout, llms.WithTemperature(0))

	builder := kb.NewBuilder(log, clients.embedder, queries, c.Index)
	if c.BootstrapCSV != "" {
		count, err := builder.LoadOrRebuild(ctx, func() ([]kb.Record, error) {
			return loadCSVFile(log, c.BootstrapCSV)
		})
		if err != nil {
			return fmt.Errorf("failed to bootstrap knowledge base: %w", err)
		}
		log.Info("knowledge base ready", slog.String("index", c.Index), slog.Int64("documents", count))
	} else {
		count, err := queries.DocumentCount(ctx, c.Index)
		if err != nil {
			return fmt.Errorf("failed to count knowledge base documents: %w", err)
		}
		if count == 0 {
			log.Warn("knowledge base is empty, all questions will use web search", slog.String("index", c.Index))
		}
	}
	store := retrieval.New(clients.embedder, queries, c.Index, c.TopK, c.RetrievalTimeout)

	var provider search.Provider
	if c.TavilyAPIKey != "" {
		provider = search.NewTavily(c.TavilyURL, c.TavilyAPIKey, c.MaxWebResults, c.SearchTimeout)
	} else {
		log.Warn("no Tavily API key provided, web search is disabled")
	}
	web := extract.New(log, provider,
		extract.WithHTTPClient(&http.Client{Timeout: c.FetchTimeout}),
		extract.WithMaxChars(c.MaxExtractChars))

	guard := guardrail.New(log, classifier, guardConfig)
	r := router.New(log, routerConfig, guard, store, web, answerer)
	m := metrics.New(prometheus.DefaultRegisterer)

	mux := http.NewServeMux()
	mux.Handle("POST /query", querypost.New(log, r, m))
	mux.Handle("POST /context", contextpost.New(log, store, c.MaxContextDocs, c.SimilarityThreshold))
	mux.Handle("POST /documents", documentspost.New(log, builder, m))
	mux.Handle("POST /feedback", feedbackpost.New(log, queries, m))

	var apiKeyToUserName map[string]string
	if c.APIKeysFile != "" {
		apiKeyToUserName, err = auth.LoadFromFile(c.APIKeysFile)
		if err != nil {
			return fmt.Errorf("failed to load API keys: %w", err)
		}
	} else {
		log.Warn("no API keys file provided, authentication is disabled")
	}
	authenticatedMux := auth.New(apiKeyToUserName, mux)

	root := http.NewServeMux()
	root.Handle("GET /metrics", promhttp.Handler())
	root.Handle("/", cors.AllowAll().Handler(authenticatedMux))

	log.Info("Listening", slog.String("addr", c.ListenAddr))
	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: root,
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	}
	return s.ListenAndServe()
}
