// Package store is the document-store adapter: typed create/read/update/
// delete and the filtered queries the sync core needs, over database/sql.
// Every successful mutation is published to the change feed, which is the
// only path by which connected clients learn about it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not_found")
	ErrUnavailable = errors.New("remote_unavailable")
	ErrTimeout     = errors.New("timeout")
)

// wrapErr maps driver errors onto the store's error taxonomy.
func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
