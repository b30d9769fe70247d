package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"referral-gate-bot/internal/platformsettings/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a settings repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the settings row. A missing row (migrations seed it) reads as empty version 0.
func (r *PostgresRepository) Get(ctx context.Context) (*domain.Settings, error) {
	row := r.db.QueryRowContext(ctx, `SELECT required_channels, version, updated_at FROM settings WHERE id = 1`)
	s, err := scanSettings(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.Settings{}, nil
		}
		return nil, err
	}
	return s, nil
}

// UpdateChannels is a compare-and-set on version in a single statement.
func (r *PostgresRepository) UpdateChannels(ctx context.Context, channels []string, expectedVersion int64) (*domain.Settings, error) {
	if channels == nil {
		channels = []string{}
	}
	raw, err := json.Marshal(channels)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO settings (id, required_channels, version, updated_at)
		VALUES (1, $1, $2 + 1, $3)
		ON CONFLICT (id) DO UPDATE
		SET required_channels = EXCLUDED.required_channels, version = settings.version + 1, updated_at = EXCLUDED.updated_at
		WHERE settings.version = $2
		RETURNING required_channels, version, updated_at`, string(raw), expectedVersion, time.Now().UTC())
	s, err := scanSettings(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVersionConflict
		}
		return nil, err
	}
	return s, nil
}

func scanSettings(row *sql.Row) (*domain.Settings, error) {
	var raw []byte
	s := &domain.Settings{}
	if err := row.Scan(&raw, &s.Version, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.RequiredChannels); err != nil {
			return nil, err
		}
	}
	return s, nil
}
