package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
)

const defaultCollection = "idempotency_keys"

// DocumentStore persists records in a docstore collection so keys survive restarts on every
// persistence backend. Reserve is serialised per process; concurrent instances may both see a
// new reservation for the same key within the same instant.
type DocumentStore struct {
	store      docstore.Store
	collection string
	mu         sync.Mutex
}

// DocumentOption customises the DocumentStore.
type DocumentOption func(*DocumentStore)

// WithCollection overrides the collection that holds records.
func WithCollection(name string) DocumentOption {
	return func(s *DocumentStore) {
		if name != "" {
			s.collection = name
		}
	}
}

// NewDocumentStore wraps a docstore backend.
func NewDocumentStore(store docstore.Store, opts ...DocumentOption) *DocumentStore {
	s := &DocumentStore{store: store, collection: defaultCollection}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *DocumentStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok, err := s.load(ctx, key)
	if err != nil {
		return Reservation{}, err
	}
	if ok && !record.expired(now) {
		return resolve(record, fingerprint)
	}
	record = pendingRecord(key, fingerprint, now, ttl)
	if err := s.put(ctx, record); err != nil {
		return Reservation{}, err
	}
	return Reservation{State: ReservationStateNew, Record: record}, nil
}

func (s *DocumentStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if ok && record.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	if !ok {
		record = Record{Key: key, Fingerprint: fingerprint}
	}
	return s.put(ctx, completeRecord(record, resp, now, ttl))
}

func (s *DocumentStore) Release(ctx context.Context, key, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, s.collection, recordID(key)); err != nil && !docstore.IsNotFound(err) {
		return err
	}
	return nil
}

func (s *DocumentStore) load(ctx context.Context, key string) (Record, bool, error) {
	doc, err := s.store.Get(ctx, s.collection, recordID(key))
	if err != nil {
		if docstore.IsNotFound(err) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	var record Record
	if err := json.Unmarshal(doc.Data, &record); err != nil {
		return Record{}, false, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return record, true, nil
}

func (s *DocumentStore) put(ctx context.Context, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("idempotency: encode record: %w", err)
	}
	_, err = s.store.Put(ctx, s.collection, recordID(record.Key), payload)
	return err
}
