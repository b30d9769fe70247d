package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"referral-gate-bot/internal/audit/domain"
)

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

var columns = []string{"id", "actor_id", "action", "resource", "metadata", "created_at"}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("11111111-1111-1111-1111-111111111111", int64(7), "channel_added", "channel", "@news", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.AuditLog{
		ID: "11111111-1111-1111-1111-111111111111", ActorID: 7, Action: "channel_added",
		Resource: "channel", Metadata: "@news", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRepository_GetByID(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	id := "11111111-1111-1111-1111-111111111111"
	mock.ExpectQuery(`SELECT .+ FROM audit_logs WHERE id = \$1`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(id, int64(7), "broadcast", "user", nil, now))

	a, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if a == nil || a.ActorID != 7 || a.Action != "broadcast" || a.Metadata != "" {
		t.Errorf("GetByID = %+v", a)
	}
}

func TestPostgresRepository_GetByID_Missing(t *testing.T) {
	repo, mock := newMock(t)
	id := "11111111-1111-1111-1111-111111111111"
	mock.ExpectQuery(`SELECT .+ FROM audit_logs`).WithArgs(id).WillReturnError(sql.ErrNoRows)

	a, err := repo.GetByID(context.Background(), id)
	if err != nil || a != nil {
		t.Errorf("GetByID = %v, %v; want nil, nil", a, err)
	}

	a, err = repo.GetByID(context.Background(), "not-a-uuid")
	if err != nil || a != nil {
		t.Errorf("GetByID(non-uuid) = %v, %v; want nil, nil", a, err)
	}
}

func TestPostgresRepository_ListRecent(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM audit_logs ORDER BY created_at DESC LIMIT \$1`).WithArgs(int32(2)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("b", int64(7), "content_created", "content", "Guide", now).
			AddRow("a", int64(7), "channel_removed", "channel", "@old", now.Add(-time.Minute)))

	list, err := repo.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].Metadata != "@old" {
		t.Errorf("ListRecent = %+v", list)
	}
}

func TestMemoryRepository_ListRecent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = repo.Create(ctx, &domain.AuditLog{ID: id, ActorID: 1})
	}
	list, _ := repo.ListRecent(ctx, 2)
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Errorf("ListRecent = %+v", list)
	}
	got, _ := repo.GetByID(ctx, "a")
	if got == nil || got.ID != "a" {
		t.Errorf("GetByID(a) = %+v", got)
	}
	missing, _ := repo.GetByID(ctx, "z")
	if missing != nil {
		t.Error("GetByID(z) should be nil")
	}
}
