package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestListEnvironmentsScansNullableColumns(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"env_id", "env_name", "env_id_parent", "env_status", "env_description", "uid", "parent_uid", "wiki_link"}).
		AddRow(1, "Karst", 0, 1, "Carbonate aquifer", "env-karst", nil, nil).
		AddRow(2, "Alluvial", 0, 1, "River deposits", nil, nil, "https://wiki.test/alluvial")
	mock.ExpectQuery(regexp.QuoteMeta("FROM environments")).WillReturnRows(rows)

	items, err := store.ListEnvironments(context.Background())
	if err != nil {
		t.Fatalf("ListEnvironments() error = %v", err)
	}
	if len(items) != 2 || items[0].Name != "Karst" || items[1].Name != "Alluvial" {
		t.Fatalf("unexpected environments %+v", items)
	}
	if items[0].UID == nil || *items[0].UID != "env-karst" || items[0].WikiLink != nil {
		t.Fatalf("unexpected nullable columns on first row: %+v", items[0])
	}
	if items[1].UID != nil || items[1].WikiLink == nil {
		t.Fatalf("unexpected nullable columns on second row: %+v", items[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListReviewsEmptyIsNotNil(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id_review, review_level FROM reviews")).
		WillReturnRows(sqlmock.NewRows([]string{"id_review", "review_level"}))

	items, err := store.ListReviews(context.Background())
	if err != nil {
		t.Fatalf("ListReviews() error = %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestListReviewsWrapsQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews")).WillReturnError(boom)

	_, err := store.ListReviews(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("nobody@hypda.test").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "password_hash", "role", "created_at"}))

	_, err := store.GetUserByEmail(context.Background(), " nobody@hypda.test ")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("avery@hypda.test").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "password_hash", "role", "created_at"}).
			AddRow("usr_1", "avery@hypda.test", "Avery", "hash", "superuser", created))

	user, err := store.GetUserByEmail(context.Background(), "avery@hypda.test")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if user.ID != "usr_1" || user.Role != "superuser" || !user.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestCreateUser(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("usr_1", "avery@hypda.test", "Avery", "hash", "operator").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CreateUser(context.Background(), User{
		ID: "usr_1", Email: "avery@hypda.test", DisplayName: "Avery", PasswordHash: "hash", Role: "operator",
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertReviewReturnsID(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews (review_level) VALUES ($1) RETURNING id_review")).
		WithArgs("Peer reviewed").
		WillReturnRows(sqlmock.NewRows([]string{"id_review"}).AddRow(4))

	id, err := store.InsertReview(context.Background(), "Peer reviewed")
	if err != nil {
		t.Fatalf("InsertReview() error = %v", err)
	}
	if id != 4 {
		t.Fatalf("expected id 4, got %d", id)
	}
}

func TestInsertEnvironmentPassesNullablePointers(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO environments")).
		WithArgs("Karst", 0, 1, "Carbonate aquifer", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"env_id"}).AddRow(1))

	id, err := store.InsertEnvironment(context.Background(), Environment{Name: "Karst", Status: 1, Description: "Carbonate aquifer"})
	if err != nil {
		t.Fatalf("InsertEnvironment() error = %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
}

func TestGetUserByID(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("usr_2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "password_hash", "role", "created_at"}).
			AddRow("usr_2", "op@hypda.test", "Op", "hash", "operator", time.Now()))

	user, err := store.GetUserByID(context.Background(), "usr_2")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Email != "op@hypda.test" || user.Role != "operator" {
		t.Fatalf("unexpected user %+v", user)
	}
}
