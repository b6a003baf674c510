package search

import (
	"context"
	"fmt"
)

type Result struct {
	URL     string
	Title   string
	Snippet string
}

type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Error is returned for quota, transport and timeout failures.
type Error struct {
	Query string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("search: query %q failed: %v", e.Query, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
