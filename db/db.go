package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rqlite/gorqlite"
)

func New(conn *gorqlite.Connection) *Queries {
	return &Queries{
		conn: conn,
	}
}

type Queries struct {
	conn *gorqlite.Connection
}

// DocumentID identifies a record within a named knowledge base index.
type DocumentID struct {
	Partition string
	URL       string
}

func (d DocumentID) String() string {
	return fmt.Sprintf("%s:%s", d.Partition, d.URL)
}

type Document struct {
	DocumentID
	// Title holds the question of a question/answer record.
	Title         string
	Text          string
	Summary       string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

type Chunk struct {
	Text      string
	Embedding []float32
}

type DocumentPutArgs struct {
	Document Document
	Chunks   []Chunk
}

func (q *Queries) documentUpsertRowID(ctx context.Context, d Document) (rowID int64, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query: `insert into document (id, partition, url, title, summary, created_at, last_updated_at)
values (?, ?, ?, ?, ?, ?, ?)
on conflict(id) do update
set
    title = excluded.title,
    summary = excluded.summary,
    last_updated_at = excluded.last_updated_at
`,
		Arguments: []any{d.DocumentID.String(), d.Partition, d.URL, d.Title, d.Summary, d.CreatedAt, d.LastUpdatedAt},
	}
	if _, err = q.conn.WriteOneParameterizedContext(ctx, stmt); err != nil {
		return 0, err
	}

	stmt = gorqlite.ParameterizedStatement{
		Query:     `select rowid from document where id = ?`,
		Arguments: []any{d.DocumentID.String()},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if !result.Next() {
		return 0, fmt.Errorf("expected a row ID")
	}
	err = result.Scan(&rowID)
	return rowID, err
}

func (q *Queries) DocumentPut(ctx context.Context, args DocumentPutArgs) (id int64, err error) {
	id, err = q.documentUpsertRowID(ctx, args.Document)
	if err != nil {
		return id, fmt.Errorf("failed to upsert document row id: %w", err)
	}
	if id == 0 {
		return id, fmt.Errorf("expected a non-zero row ID")
	}

	statements := make([]gorqlite.ParameterizedStatement, 0, len(args.Chunks)+2)
	statements = append(statements, gorqlite.ParameterizedStatement{
		Query:     `delete from document_chunk_vec where document_rowid = ?`,
		Arguments: []any{id},
	})
	for chunkIndex, chunk := range args.Chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return id, fmt.Errorf("failed to marshal embedding: %w", err)
		}
		statements = append(statements, gorqlite.ParameterizedStatement{
			Query:     `insert into document_chunk_vec (document_rowid, partition, idx, text, embedding) values (?, ?, ?, ?, ?)`,
			Arguments: []any{id, args.Document.Partition, chunkIndex, chunk.Text, string(embeddingJSON)},
		})
	}
	statements = append(statements, gorqlite.ParameterizedStatement{
		Query:     `insert or replace into document_fts (rowid, partition, url, title, text, summary) values (?, ?, ?, ?, ?, ?)`,
		Arguments: []any{id, args.Document.Partition, args.Document.URL, args.Document.Title, args.Document.Text, args.Document.Summary},
	})
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return id, err
	}
	return id, nil
}

func (q *Queries) DocumentGet(ctx context.Context, args DocumentID) (doc Document, ok bool, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     "select document.partition, document.url, document.title, document_fts.text, document.summary, document.created_at, document.last_updated_at from document_fts inner join document on document.rowid = document_fts.rowid where document.partition = ? and document.url = ?",
		Arguments: []any{args.Partition, args.URL},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return Document{}, false, err
	}
	if !result.Next() {
		return Document{}, false, nil
	}
	if err = result.Scan(&doc.Partition, &doc.URL, &doc.Title, &doc.Text, &doc.Summary, &doc.CreatedAt, &doc.LastUpdatedAt); err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

func (q *Queries) DocumentCount(ctx context.Context, partition string) (count int64, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select count(*) from document where partition = ?`,
		Arguments: []any{partition},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if !result.Next() {
		return 0, nil
	}
	err = result.Scan(&count)
	return count, err
}

// DocumentDeletePartition removes every document in a knowledge base index.
func (q *Queries) DocumentDeletePartition(ctx context.Context, partition string) (err error) {
	statements := []gorqlite.ParameterizedStatement{
		{
			Query:     `delete from document_chunk_vec where partition = ?`,
			Arguments: []any{partition},
		},
		{
			Query:     `delete from document_fts where rowid in (select rowid from document where partition = ?)`,
			Arguments: []any{partition},
		},
		{
			Query:     `delete from document where partition = ?`,
			Arguments: []any{partition},
		},
	}
	_, err = q.conn.WriteParameterizedContext(ctx, statements)
	return err
}

type DocumentSelectNearestArgs struct {
	Partition string
	Embedding []float32
	Limit     int
}

type DocumentSelectNearestResult struct {
	RowID     int64
	Partition string
	Index     int64
	Text      string
	Distance  float64
	URL       string
	Title     string
	Summary   string
}

// DocumentNearest returns the closest chunks ordered by ascending L2 distance.
func (q *Queries) DocumentNearest(ctx context.Context, args DocumentSelectNearestArgs) (docs []DocumentSelectNearestResult, err error) {
	inputEmbeddingJSON, err := json.Marshal(args.Embedding)
	if err != nil {
		return docs, fmt.Errorf("failed to marshal input embedding: %w", err)
	}
	stmt := gorqlite.ParameterizedStatement{
		Query: `with limited_dcv as (
  select document_rowid, partition, idx, text, distance
  from document_chunk_vec
  where partition = ? and embedding match ? and k = ?
  order by distance asc
)
select
  ld.document_rowid,
  ld.partition,
  ld.idx,
  ld.text,
  ld.distance,
  d.url,
  d.title,
  d.summary
from limited_dcv ld
left join document d on d.rowid = ld.document_rowid
order by ld.distance asc;`,
		Arguments: []any{args.Partition, string(inputEmbeddingJSON), args.Limit},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return docs, err
	}
	for result.Next() {
		var doc DocumentSelectNearestResult
		if err = result.Scan(&doc.RowID, &doc.Partition, &doc.Index, &doc.Text, &doc.Distance, &doc.URL, &doc.Title, &doc.Summary); err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
