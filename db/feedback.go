package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rqlite/gorqlite"
)

type Feedback struct {
	CreatedAt time.Time
	User      string
	Query     string
	Response  string
	Rating    string
	Comments  string
}

// FeedbackPut appends an entry to the feedback log.
func (q *Queries) FeedbackPut(ctx context.Context, f Feedback) (id int64, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `insert into feedback (created_at, user, query, response, rating, comments) values (?, ?, ?, ?, ?, ?)`,
		Arguments: []any{f.CreatedAt, f.User, f.Query, f.Response, f.Rating, f.Comments},
	}
	result, err := q.conn.WriteOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert feedback: %w", err)
	}
	return result.LastInsertID, nil
}
