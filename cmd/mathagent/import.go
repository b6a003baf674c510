package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/a-h/mathagent/client"
	"github.com/a-h/mathagent/kb"
	"github.com/a-h/mathagent/models"
	"github.com/pluja/pocketbase"
)

type ImportCommand struct {
	ServerURL string `help:"The URL of the math agent server." env:"MATHAGENT_URL" default:"http://localhost:9020"`
	APIKey    string `help:"The API key for the math agent server." env:"MATHAGENT_API_KEY" default:""`
	Source    string `help:"Where to import documents from." enum:"csv,pocketbase" env:"SOURCE" default:"csv"`

	CSV string `help:"A header-less question,answer CSV file to import." env:"CSV" default:"data/jee_math.csv" type:"path"`

	PocketbaseURL  string `help:"The URL of the Pocketbase server." env:"POCKETBASE_URL" default:"http://localhost:8080"`
	ID             string `help:"The ID of the record to import if you just want to import a single record." env:"ID" default:""`
	Collection     string `help:"The name of the collection to export from." env:"COLLECTION" default:"problems"`
	Expand         string `help:"The fields to expand." env:"EXPAND" default:""`
	QuestionFields string `help:"Comma separated list of fields that may contain the question." env:"QUESTION_FIELDS" default:"question,title,name"`
	AnswerFields   string `help:"Comma separated list of fields that may contain the answer." env:"ANSWER_FIELDS" default:"answer,solution"`
	Files          string `help:"Comma separated list of fields that contain Pocketbase PDF references to append to the answer." env:"FILES" default:""`

	DryRun   bool   `help:"Do not actually import the documents." env:"DRY_RUN" default:"false"`
	LogLevel string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ImportCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	rsc := client.New(c.ServerURL, c.APIKey)
	put := func(doc models.Document) error {
		log.Info("importing document", slog.String("source", doc.Source))
		if c.DryRun {
			log.Info("skipping document import in dry run mode", slog.String("source", doc.Source), slog.String("question", doc.Question))
			return nil
		}
		resp, err := rsc.DocumentsPut(ctx, models.DocumentsPostRequest{
			Document: doc,
		})
		if err != nil {
			return fmt.Errorf("failed to put document %s: %w", doc.Source, err)
		}
		log.Info("document imported", slog.String("source", doc.Source), slog.Int64("id", resp.ID))
		return nil
	}

	switch c.Source {
	case "pocketbase":
		pbe := NewPocketbaseExporter(c.PocketbaseURL, pocketbase.NewClient(c.PocketbaseURL), c.Collection, c.Expand, c.QuestionFields, c.AnswerFields, c.Files)
		for doc := range pbe.Export(ctx) {
			if c.ID != "" && doc.ID != c.ID {
				continue
			}
			if doc.Document.Question == "" || doc.Document.Answer == "" {
				log.Warn("skipping record without a question or answer", slog.String("id", doc.ID))
				continue
			}
			if err = put(doc.Document); err != nil {
				return err
			}
		}
		return pbe.Error
	default:
		records, err := loadCSVFile(log, c.CSV)
		if err != nil {
			return err
		}
		for _, r := range records {
			if err = put(recordToDocument(r)); err != nil {
				return err
			}
		}
		return nil
	}
}

func recordToDocument(r kb.Record) models.Document {
	return models.Document{
		Source:   r.Source,
		Question: r.Question,
		Answer:   r.Answer,
	}
}

func splitFields(s string) (fields []string) {
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
