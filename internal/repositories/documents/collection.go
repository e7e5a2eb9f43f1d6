// Package documents implements the repository interfaces over a docstore.Store so the same code
// runs against the JSON file, Postgres, and Firestore backends.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
)

const (
	collectionProducts = "products"
	collectionCarts    = "carts"
	collectionOrders   = "orders"
	collectionGallery  = "gallery"
	collectionServices = "services"
	collectionBlog     = "blog_posts"
	collectionContacts = "contacts"
)

var errMissingID = errors.New("document id is required")

// Collection is a typed view over one docstore collection.
type Collection[T any] struct {
	store docstore.Store
	name  string
}

// NewCollection binds a record type to a collection name.
func NewCollection[T any](store docstore.Store, name string) Collection[T] {
	return Collection[T]{store: store, name: name}
}

// Get loads and decodes the record stored under id.
func (c Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, docstore.NotFound(c.op("get"), c.name, id)
	}
	doc, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return zero, err
	}
	return c.decode(doc)
}

// Put encodes value and stores it under id, replacing any previous record.
func (c Collection[T]) Put(ctx context.Context, id string, value T) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return docstore.NewError(c.op("put"), docstore.KindUnknown, errMissingID)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return docstore.NewError(c.op("put"), docstore.KindUnknown, err)
	}
	_, err = c.store.Put(ctx, c.name, id, payload)
	return err
}

// Delete removes the record stored under id.
func (c Collection[T]) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return docstore.NotFound(c.op("delete"), c.name, id)
	}
	return c.store.Delete(ctx, c.name, id)
}

// List decodes every record in id order.
func (c Collection[T]) List(ctx context.Context) ([]T, error) {
	docs, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		value, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// Find returns the first record, in id order, that satisfies match.
func (c Collection[T]) Find(ctx context.Context, match func(T) bool) (T, bool, error) {
	var zero T
	items, err := c.List(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, item := range items {
		if match(item) {
			return item, true, nil
		}
	}
	return zero, false, nil
}

func (c Collection[T]) decode(doc docstore.Document) (T, error) {
	var value T
	if err := json.Unmarshal(doc.Data, &value); err != nil {
		return value, docstore.NewError(c.op("decode"), docstore.KindUnknown, err)
	}
	return value, nil
}

func (c Collection[T]) op(action string) string {
	return "documents." + c.name + "." + action
}
