package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/sendrec/videoexp/internal/playlist"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestPostgresStore_Get(t *testing.T) {
	mock := newMockPool(t)
	s := NewPostgresStore(mock)

	doc, _ := playlist.Encode(playlist.Default())
	mock.ExpectQuery(`SELECT document FROM experience_documents WHERE experience_id = \$1`).
		WithArgs("exp_1").
		WillReturnRows(pgxmock.NewRows([]string{"document"}).AddRow(doc))

	got, err := s.Get(context.Background(), "exp_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != playlist.DefaultTitle {
		t.Errorf("expected default title, got %q", got.Title)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	mock := newMockPool(t)
	s := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT document FROM experience_documents`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_GetQueryError(t *testing.T) {
	mock := newMockPool(t)
	s := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT document FROM experience_documents`).
		WithArgs("exp_1").
		WillReturnError(errors.New("connection reset"))

	_, err := s.Get(context.Background(), "exp_1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected storage failure, got %v", err)
	}
}

func TestPostgresStore_Put(t *testing.T) {
	mock := newMockPool(t)
	s := NewPostgresStore(mock)

	mock.ExpectExec(`INSERT INTO experience_documents`).
		WithArgs("exp_1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.Put(context.Background(), "exp_1", playlist.Default()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestPostgresStore_Delete(t *testing.T) {
	mock := newMockPool(t)
	s := NewPostgresStore(mock)

	mock.ExpectExec(`DELETE FROM experience_documents WHERE experience_id = \$1`).
		WithArgs("exp_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := s.Delete(context.Background(), "exp_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestPostgresStore_List(t *testing.T) {
	mock := newMockPool(t)
	s := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT experience_id FROM experience_documents ORDER BY experience_id`).
		WillReturnRows(pgxmock.NewRows([]string{"experience_id"}).AddRow("a").AddRow("b"))

	names, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "experience-a.json" || names[1] != "experience-b.json" {
		t.Errorf("unexpected names: %v", names)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}
