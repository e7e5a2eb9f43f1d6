package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (collection, id)
)`
	getSQL    = `SELECT payload, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`
	upsertSQL = `INSERT INTO documents (collection, id, payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (collection, id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
RETURNING created_at, updated_at`
	deleteSQL = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	listSQL   = `SELECT id, payload, created_at, updated_at FROM documents WHERE collection = $1 ORDER BY id`
)

// PostgresStore keeps documents in a single JSONB table on a managed Postgres instance.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenPostgres connects through the pgx database/sql driver and applies connection pool limits.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("docstore: postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := NewPostgresStore(db)
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore wraps an existing handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

// EnsureSchema creates the documents table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return wrapPostgres("postgres.schema", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	doc := Document{ID: id}
	var payload []byte
	err := s.db.QueryRowContext(ctx, getSQL, collection, id).Scan(&payload, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, NotFound("postgres.get", collection, id)
	}
	if err != nil {
		return Document{}, wrapPostgres("postgres.get", err)
	}
	doc.Data = payload
	return doc, nil
}

func (s *PostgresStore) Put(ctx context.Context, collection, id string, data []byte) (Document, error) {
	if id == "" {
		return Document{}, NewError("postgres.put", KindUnknown, errors.New("document id is required"))
	}
	now := s.clock().UTC()
	doc := Document{ID: id, Data: append([]byte(nil), data...)}
	err := s.db.QueryRowContext(ctx, upsertSQL, collection, id, string(data), now).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, wrapPostgres("postgres.put", err)
	}
	return doc, nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, deleteSQL, collection, id)
	if err != nil {
		return wrapPostgres("postgres.delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NotFound("postgres.delete", collection, id)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, listSQL, collection)
	if err != nil {
		return nil, wrapPostgres("postgres.list", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var payload []byte
		if err := rows.Scan(&doc.ID, &payload, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, wrapPostgres("postgres.list", err)
		}
		doc.Data = payload
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPostgres("postgres.list", err)
	}
	return docs, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewError("postgres.ping", KindUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// wrapPostgres classifies driver errors by SQLSTATE class.
func wrapPostgres(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505", pgErr.Code == "40001", pgErr.Code == "40P01":
			return NewError(op, KindConflict, err)
		case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "53" || pgErr.Code[:2] == "57"):
			return NewError(op, KindUnavailable, err)
		}
		return NewError(op, KindUnknown, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return NewError(op, KindUnavailable, err)
	}
	return NewError(op, KindUnknown, err)
}
