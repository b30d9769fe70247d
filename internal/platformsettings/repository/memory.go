package repository

import (
	"context"
	"sync"
	"time"

	"referral-gate-bot/internal/platformsettings/domain"
)

// MemoryRepository keeps the settings record in process memory. Used when DATABASE_URL is unset.
type MemoryRepository struct {
	mu sync.Mutex
	s  domain.Settings
}

// NewMemoryRepository returns an empty settings record at version 0.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Get(ctx context.Context) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked(), nil
}

func (r *MemoryRepository) UpdateChannels(ctx context.Context, channels []string, expectedVersion int64) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	r.s.RequiredChannels = append([]string(nil), channels...)
	r.s.Version++
	r.s.UpdatedAt = time.Now().UTC()
	return r.copyLocked(), nil
}

func (r *MemoryRepository) copyLocked() *domain.Settings {
	return &domain.Settings{
		RequiredChannels: append([]string(nil), r.s.RequiredChannels...),
		Version:          r.s.Version,
		UpdatedAt:        r.s.UpdatedAt,
	}
}
