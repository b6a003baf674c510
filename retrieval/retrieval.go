package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/a-h/mathagent/db"
	"github.com/tmc/langchaingo/embeddings"
)

type Metadata struct {
	Source   string
	Question string
}

type Document struct {
	Content  string
	Metadata Metadata
}

// ScoredDocument pairs a document with its distance from the query. Lower is closer.
type ScoredDocument struct {
	Document
	Distance float64
}

type Index interface {
	DocumentNearest(ctx context.Context, args db.DocumentSelectNearestArgs) ([]db.DocumentSelectNearestResult, error)
}

func New(embedder embeddings.Embedder, index Index, partition string, k int, timeout time.Duration) *Store {
	if k <= 0 {
		k = 3
	}
	return &Store{
		embedder:  embedder,
		index:     index,
		partition: partition,
		k:         k,
		timeout:   timeout,
	}
}

// Store searches one named knowledge base index. It holds no mutable state and
// is safe for concurrent use.
type Store struct {
	embedder  embeddings.Embedder
	index     Index
	partition string
	k         int
	timeout   time.Duration
}

func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) (docs []ScoredDocument, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: failed to embed query: %w", err)
	}
	results, err := s.index.DocumentNearest(ctx, db.DocumentSelectNearestArgs{
		Partition: s.partition,
		Embedding: embedding,
		Limit:     k,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: failed to find nearest documents: %w", err)
	}
	docs = make([]ScoredDocument, len(results))
	for i, r := range results {
		docs[i] = ScoredDocument{
			Document: Document{
				Content: r.Text,
				Metadata: Metadata{
					Source:   r.URL,
					Question: r.Title,
				},
			},
			Distance: r.Distance,
		}
	}
	return docs, nil
}

// Retrieve returns the top k documents without their distances.
func (s *Store) Retrieve(ctx context.Context, query string) (docs []Document, err error) {
	scored, err := s.SimilaritySearch(ctx, query, s.k)
	if err != nil {
		return nil, err
	}
	docs = make([]Document, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}
	return docs, nil
}
