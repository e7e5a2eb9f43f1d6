package firestore

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
)

// storedDocument is the on-disk shape. The JSON payload is kept as a string so records keep their
// exact JSON encoding across backends.
type storedDocument struct {
	Payload   string    `firestore:"payload"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// Store implements docstore.Store on top of Firestore collections.
type Store struct {
	provider *Provider
	prefix   string
	clock    func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// NewStore binds a docstore to the provider. prefix namespaces collection names (e.g. "fab_").
func NewStore(provider *Provider, prefix string) *Store {
	return &Store{provider: provider, prefix: prefix, clock: time.Now}
}

func (s *Store) collection(ctx context.Context, name string) (*firestore.CollectionRef, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, docstore.NewError("firestore.client", docstore.KindUnavailable, err)
	}
	return client.Collection(s.prefix + name), nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	col, err := s.collection(ctx, collection)
	if err != nil {
		return docstore.Document{}, err
	}
	snap, err := col.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return docstore.Document{}, docstore.NotFound("firestore.get", collection, id)
		}
		return docstore.Document{}, WrapError("firestore.get", err)
	}
	return decodeSnapshot(snap)
}

func (s *Store) Put(ctx context.Context, collection, id string, data []byte) (docstore.Document, error) {
	if id == "" {
		return docstore.Document{}, docstore.NewError("firestore.put", docstore.KindUnknown, errors.New("document id is required"))
	}
	col, err := s.collection(ctx, collection)
	if err != nil {
		return docstore.Document{}, err
	}
	ref := col.Doc(id)
	now := s.clock().UTC()
	stored := storedDocument{Payload: string(data), CreatedAt: now, UpdatedAt: now}

	err = s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			var existing storedDocument
			if err := snap.DataTo(&existing); err == nil && !existing.CreatedAt.IsZero() {
				stored.CreatedAt = existing.CreatedAt
			}
		}
		return tx.Set(ref, stored)
	})
	if err != nil {
		return docstore.Document{}, WrapError("firestore.put", err)
	}
	return docstore.Document{ID: id, Data: append([]byte(nil), data...), CreatedAt: stored.CreatedAt, UpdatedAt: stored.UpdatedAt}, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	col, err := s.collection(ctx, collection)
	if err != nil {
		return err
	}
	if _, err := col.Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return docstore.NotFound("firestore.delete", collection, id)
		}
		return WrapError("firestore.delete", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	col, err := s.collection(ctx, collection)
	if err != nil {
		return nil, err
	}
	iter := col.Documents(ctx)
	defer iter.Stop()

	var docs []docstore.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, WrapError("firestore.list", err)
		}
		doc, err := decodeSnapshot(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Ping performs a cheap read against a sentinel collection.
func (s *Store) Ping(ctx context.Context) error {
	col, err := s.collection(ctx, "_health")
	if err != nil {
		return err
	}
	iter := col.Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return WrapError("firestore.ping", err)
	}
	return nil
}

func (s *Store) Close() error { return s.provider.Close() }

func decodeSnapshot(snap *firestore.DocumentSnapshot) (docstore.Document, error) {
	var stored storedDocument
	if err := snap.DataTo(&stored); err != nil {
		return docstore.Document{}, docstore.NewError("firestore.decode", docstore.KindUnknown, err)
	}
	return docstore.Document{
		ID:        snap.Ref.ID,
		Data:      []byte(stored.Payload),
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}
