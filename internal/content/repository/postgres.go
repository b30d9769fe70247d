package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"referral-gate-bot/internal/content/domain"
)

const itemColumns = `id, seq, title, payload_kind, payload_text, media_chat_id, media_message_id, caption, created_by, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a content repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM content_items ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetByID returns nil for ids that are not UUIDs or match no row.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM content_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

func (r *PostgresRepository) Create(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	p := item.Payload
	text := sql.NullString{String: p.Text, Valid: p.Kind == domain.PayloadText}
	chatID := sql.NullInt64{Int64: p.ChatID, Valid: p.Kind == domain.PayloadMedia}
	msgID := sql.NullInt32{Int32: int32(p.MessageID), Valid: p.Kind == domain.PayloadMedia}
	caption := sql.NullString{String: p.Caption, Valid: p.Caption != ""}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO content_items (id, title, payload_kind, payload_text, media_chat_id, media_message_id, caption, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`,
		item.ID, item.Title, string(p.Kind), text, chatID, msgID, caption, item.CreatedBy, item.CreatedAt,
	).Scan(&item.Seq)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM content_items`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*domain.Item, error) {
	var (
		item    domain.Item
		kind    string
		text    sql.NullString
		chatID  sql.NullInt64
		msgID   sql.NullInt32
		caption sql.NullString
	)
	if err := s.Scan(&item.ID, &item.Seq, &item.Title, &kind, &text, &chatID, &msgID, &caption, &item.CreatedBy, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Payload = domain.Payload{
		Kind:      domain.PayloadKind(kind),
		Text:      text.String,
		ChatID:    chatID.Int64,
		MessageID: int(msgID.Int32),
		Caption:   caption.String,
	}
	return &item, nil
}
