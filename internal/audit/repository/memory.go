package repository

import (
	"context"
	"sync"

	"referral-gate-bot/internal/audit/domain"
)

// MemoryRepository keeps audit logs in process memory. Used when DATABASE_URL is unset.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns an empty audit log.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.entries {
		if a.ID == id {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListRecent(ctx context.Context, limit int32) ([]*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.AuditLog, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && int32(len(out)) < limit; i-- {
		c := *r.entries[i]
		out = append(out, &c)
	}
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.entries = append(r.entries, &c)
	return nil
}
