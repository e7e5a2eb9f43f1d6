// Package docstore persists JSON documents grouped into named collections. The storefront keeps
// every record (products, carts, orders, content) as a document so the same repositories run on
// a flat JSON file, a managed Postgres table, or Firestore.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Document is a stored JSON payload with bookkeeping timestamps.
type Document struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store is implemented by every persistence backend.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Put inserts or replaces the document. CreatedAt is preserved on replace.
	Put(ctx context.Context, collection, id string, data []byte) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	// List returns all documents of a collection ordered by id.
	List(ctx context.Context, collection string) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// Kind classifies backend failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindUnavailable
)

// Error carries repository semantics for backend failures.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

// NewError wraps err with an operation name and kind.
func NewError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NotFound builds a KindNotFound error for collection/id.
func NotFound(op, collection, id string) *Error {
	return NewError(op, KindNotFound, fmt.Errorf("%s/%s not found", collection, id))
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether the error represents a missing document.
func (e *Error) IsNotFound() bool { return e != nil && e.Kind == KindNotFound }

// IsConflict reports whether the error represents a conflicting update.
func (e *Error) IsConflict() bool { return e != nil && e.Kind == KindConflict }

// IsUnavailable reports whether the backend is temporarily unreachable.
func (e *Error) IsUnavailable() bool { return e != nil && e.Kind == KindUnavailable }

// IsNotFound reports whether err (or anything it wraps) is a missing document.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsNotFound()
}
