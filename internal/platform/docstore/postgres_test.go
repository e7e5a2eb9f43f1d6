package docstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(getSQL).
		WithArgs("products", "bollard").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "created_at", "updated_at"}).
			AddRow([]byte(`{"title":"Bollard"}`), created, created))

	doc, err := store.Get(context.Background(), "products", "bollard")
	require.NoError(t, err)
	assert.Equal(t, "bollard", doc.ID)
	assert.JSONEq(t, `{"title":"Bollard"}`, string(doc.Data))
	assert.Equal(t, created, doc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(getSQL).WithArgs("orders", "nope").WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "orders", "nope")
	assert.True(t, IsNotFound(err))
}

func TestPostgresStorePutUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	created := now.Add(-24 * time.Hour)
	store.clock = func() time.Time { return now }

	mock.ExpectQuery(upsertSQL).
		WithArgs("carts", "c1", `{"items":[]}`, now).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, now))

	doc, err := store.Put(context.Background(), "carts", "c1", []byte(`{"items":[]}`))
	require.NoError(t, err)
	assert.Equal(t, created, doc.CreatedAt)
	assert.Equal(t, now, doc.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(deleteSQL).WithArgs("gallery", "g1").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "gallery", "g1")
	assert.True(t, IsNotFound(err))
}

func TestPostgresStoreList(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(listSQL).WithArgs("services").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload", "created_at", "updated_at"}).
			AddRow("laser-cutting", []byte(`{}`), ts, ts).
			AddRow("welding", []byte(`{}`), ts, ts))

	docs, err := store.List(context.Background(), "services")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "welding", docs[1].ID)
}

func TestPostgresStoreClassifiesConflicts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(schemaSQL).WillReturnError(&pgconn.PgError{Code: "40001"})

	err := store.EnsureSchema(context.Background())
	var docErr *Error
	require.ErrorAs(t, err, &docErr)
	assert.True(t, docErr.IsConflict())
}
