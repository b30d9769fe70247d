package repository

import (
	"context"
	"sync"
	"time"

	"referral-gate-bot/internal/content/domain"
)

// MemoryRepository keeps the catalog in process memory. Used when DATABASE_URL is unset.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []*domain.Item
	byID  map[string]*domain.Item
	seq   int64
}

// NewMemoryRepository returns an empty catalog.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.Item)}
}

func (r *MemoryRepository) List(ctx context.Context) ([]*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Item, 0, len(r.items))
	for _, it := range r.items {
		c := *it
		out = append(out, &c)
	}
	return out, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	c := *it
	return &c, nil
}

func (r *MemoryRepository) Create(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	item.Seq = r.seq
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	c := *item
	r.items = append(r.items, &c)
	r.byID[c.ID] = &c
	return nil
}

func (r *MemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}
