// Package kb builds the knowledge base index from question/answer records.
package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/a-h/mathagent/db"
	"github.com/tmc/langchaingo/embeddings"
)

type Store interface {
	DocumentPut(ctx context.Context, args db.DocumentPutArgs) (int64, error)
	DocumentGet(ctx context.Context, args db.DocumentID) (db.Document, bool, error)
	DocumentCount(ctx context.Context, partition string) (int64, error)
	DocumentDeletePartition(ctx context.Context, partition string) error
}

func NewBuilder(log *slog.Logger, embedder embeddings.Embedder, store Store, partition string) *Builder {
	return &Builder{
		log:       log,
		embedder:  embedder,
		store:     store,
		partition: partition,
		now:       time.Now,
	}
}

type Builder struct {
	log       *slog.Logger
	embedder  embeddings.Embedder
	store     Store
	partition string
	now       func() time.Time
}

func (b *Builder) Partition() string {
	return b.partition
}

// Put embeds the record and upserts it into the index. A record is stored as a
// single chunk, so a match always carries both the question and the answer.
func (b *Builder) Put(ctx context.Context, r Record) (id int64, err error) {
	content := r.Content()
	vectors, err := b.embedder.EmbedDocuments(ctx, []string{content})
	if err != nil {
		return 0, fmt.Errorf("kb: failed to embed documents: %w", err)
	}
	if len(vectors) != 1 {
		return 0, fmt.Errorf("kb: expected 1 embedding, got %d", len(vectors))
	}
	chunks := []db.Chunk{{Text: content, Embedding: vectors[0]}}

	docID := db.DocumentID{Partition: b.partition, URL: r.Source}
	now := b.now()
	createdAt := now
	existing, ok, err := b.store.DocumentGet(ctx, docID)
	if err != nil {
		return 0, fmt.Errorf("kb: failed to get existing document: %w", err)
	}
	if ok {
		createdAt = existing.CreatedAt
	}

	id, err = b.store.DocumentPut(ctx, db.DocumentPutArgs{
		Document: db.Document{
			DocumentID:    docID,
			Title:         r.Question,
			Text:          content,
			CreatedAt:     createdAt,
			LastUpdatedAt: now,
		},
		Chunks: chunks,
	})
	if err != nil {
		return 0, fmt.Errorf("kb: failed to put document: %w", err)
	}
	return id, nil
}

// Rebuild clears the index and imports every record. If any record fails, the
// index is cleared again so that a partial index is never kept.
func (b *Builder) Rebuild(ctx context.Context, records []Record) (err error) {
	b.log.Info("rebuilding knowledge base", slog.String("partition", b.partition), slog.Int("records", len(records)))
	if err = b.store.DocumentDeletePartition(ctx, b.partition); err != nil {
		return fmt.Errorf("kb: failed to clear index: %w", err)
	}
	for i, r := range records {
		if err = ctx.Err(); err == nil {
			_, err = b.Put(ctx, r)
		}
		if err != nil {
			err = fmt.Errorf("kb: record %d (%s): %w", i, r.Source, err)
			// The request context may be done, so clear with a fresh one.
			if clearErr := b.store.DocumentDeletePartition(context.WithoutCancel(ctx), b.partition); clearErr != nil {
				b.log.Error("failed to clear partial knowledge base", slog.String("partition", b.partition), slog.Any("error", clearErr))
				return errors.Join(err, fmt.Errorf("kb: failed to clear partial index: %w", clearErr))
			}
			return err
		}
	}
	b.log.Info("knowledge base rebuilt", slog.String("partition", b.partition), slog.Int("records", len(records)))
	return nil
}

// LoadOrRebuild keeps an existing index, and only rebuilds it from the loader
// when the index is empty.
func (b *Builder) LoadOrRebuild(ctx context.Context, load func() ([]Record, error)) (count int64, err error) {
	count, err = b.store.DocumentCount(ctx, b.partition)
	if err != nil {
		return 0, fmt.Errorf("kb: failed to count documents: %w", err)
	}
	if count > 0 {
		b.log.Info("loaded existing knowledge base", slog.String("partition", b.partition), slog.Int64("documents", count))
		return count, nil
	}
	records, err := load()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		b.log.Warn("no records to build the knowledge base from", slog.String("partition", b.partition))
		return 0, nil
	}
	if err = b.Rebuild(ctx, records); err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}
