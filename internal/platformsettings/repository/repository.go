package repository

import (
	"context"

	"referral-gate-bot/internal/platformsettings/domain"
)

// Repository defines access to the single settings record.
type Repository interface {
	// Get returns the current settings record.
	Get(ctx context.Context) (*domain.Settings, error)
	// UpdateChannels replaces the required channel set if the record is still at expectedVersion.
	// Returns domain.ErrVersionConflict otherwise.
	UpdateChannels(ctx context.Context, channels []string, expectedVersion int64) (*domain.Settings, error)
}
