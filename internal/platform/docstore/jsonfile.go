package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_\-]+$`)

// JSONFileStore keeps one JSON file per collection under a data directory. Collections are loaded
// lazily and cached; every write rewrites the collection file atomically.
type JSONFileStore struct {
	dir   string
	clock func() time.Time

	mu          sync.Mutex
	collections map[string]map[string]Document
}

// JSONFileOption customises the store.
type JSONFileOption func(*JSONFileStore)

// WithJSONFileClock overrides the timestamp source.
func WithJSONFileClock(clock func() time.Time) JSONFileOption {
	return func(s *JSONFileStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewJSONFileStore creates the data directory if needed.
func NewJSONFileStore(dir string, opts ...JSONFileOption) (*JSONFileStore, error) {
	if dir == "" {
		return nil, errors.New("docstore: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("docstore: create data dir: %w", err)
	}
	s := &JSONFileStore{
		dir:         dir,
		clock:       time.Now,
		collections: make(map[string]map[string]Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *JSONFileStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.load(collection)
	if err != nil {
		return Document{}, err
	}
	doc, ok := docs[id]
	if !ok {
		return Document{}, NotFound("jsonfile.get", collection, id)
	}
	return doc, nil
}

func (s *JSONFileStore) Put(_ context.Context, collection, id string, data []byte) (Document, error) {
	if id == "" {
		return Document{}, NewError("jsonfile.put", KindUnknown, errors.New("document id is required"))
	}
	if !json.Valid(data) {
		return Document{}, NewError("jsonfile.put", KindUnknown, errors.New("payload is not valid json"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.load(collection)
	if err != nil {
		return Document{}, err
	}

	now := s.clock().UTC()
	doc := Document{ID: id, Data: append(json.RawMessage(nil), data...), CreatedAt: now, UpdatedAt: now}
	previous, existed := docs[id]
	if existed {
		doc.CreatedAt = previous.CreatedAt
	}
	docs[id] = doc
	if err := s.flush(collection, docs); err != nil {
		if existed {
			docs[id] = previous
		} else {
			delete(docs, id)
		}
		return Document{}, err
	}
	return doc, nil
}

func (s *JSONFileStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	previous, ok := docs[id]
	if !ok {
		return NotFound("jsonfile.delete", collection, id)
	}
	delete(docs, id)
	if err := s.flush(collection, docs); err != nil {
		docs[id] = previous
		return err
	}
	return nil
}

func (s *JSONFileStore) List(_ context.Context, collection string) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ping verifies the data directory is still writable.
func (s *JSONFileStore) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return NewError("jsonfile.ping", KindUnavailable, err)
	}
	if !info.IsDir() {
		return NewError("jsonfile.ping", KindUnavailable, fmt.Errorf("%s is not a directory", s.dir))
	}
	return nil
}

func (s *JSONFileStore) Close() error { return nil }

func (s *JSONFileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *JSONFileStore) load(collection string) (map[string]Document, error) {
	if !collectionNamePattern.MatchString(collection) {
		return nil, NewError("jsonfile.load", KindUnknown, fmt.Errorf("invalid collection name %q", collection))
	}
	if docs, ok := s.collections[collection]; ok {
		return docs, nil
	}
	docs := make(map[string]Document)
	raw, err := os.ReadFile(s.path(collection))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, NewError("jsonfile.load", KindUnavailable, err)
	default:
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &docs); err != nil {
				return nil, NewError("jsonfile.load", KindUnknown, fmt.Errorf("decode %s: %w", s.path(collection), err))
			}
		}
	}
	for id, doc := range docs {
		doc.ID = id
		docs[id] = doc
	}
	s.collections[collection] = docs
	return docs, nil
}

func (s *JSONFileStore) flush(collection string, docs map[string]Document) error {
	payload, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return NewError("jsonfile.flush", KindUnknown, err)
	}
	if err := atomic.WriteFile(s.path(collection), bytes.NewReader(payload)); err != nil {
		return NewError("jsonfile.flush", KindUnavailable, err)
	}
	return nil
}
