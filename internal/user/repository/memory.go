package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"referral-gate-bot/internal/user/domain"
)

// MemoryRepository is an in-process Repository for local runs without DATABASE_URL and for tests.
// Each method holds the lock for its whole read-and-write, mirroring the single-statement atomicity of Postgres.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[int64]*domain.User
	nowF  func() time.Time
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[int64]*domain.User),
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) GetOrCreate(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	if err := u.Validate(); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.ID]; ok {
		return cloneUser(existing), false, nil
	}
	now := r.nowF()
	stored := &domain.User{
		ID:          u.ID,
		Points:      0,
		DisplayName: u.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if u.ReferredBy != nil {
		ref := *u.ReferredBy
		stored.ReferredBy = &ref
	}
	r.users[u.ID] = stored
	return cloneUser(stored), true, nil
}

func (r *MemoryRepository) Register(ctx context.Context, u *domain.User, bonus int64) (domain.Registration, error) {
	if err := u.Validate(); err != nil {
		return domain.Registration{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.ID]; ok {
		return domain.Registration{User: cloneUser(existing)}, nil
	}
	now := r.nowF()
	stored := &domain.User{ID: u.ID, DisplayName: u.DisplayName, CreatedAt: now, UpdatedAt: now}
	reg := domain.Registration{Created: true}
	if u.ReferredBy != nil {
		if referrer, ok := r.users[*u.ReferredBy]; ok {
			ref := referrer.ID
			stored.ReferredBy = &ref
			referrer.Points += bonus
			referrer.UpdatedAt = now
			reg.Credited, reg.ReferrerBalance = true, referrer.Points
		}
	}
	r.users[u.ID] = stored
	reg.User = cloneUser(stored)
	return reg, nil
}

func (r *MemoryRepository) AddPoints(ctx context.Context, id, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.Points += amount
	u.UpdatedAt = r.nowF()
	return u.Points, nil
}

func (r *MemoryRepository) SubtractPoints(ctx context.Context, id, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	if u.Points < amount {
		return u.Points, &domain.InsufficientBalanceError{Balance: u.Points, Required: amount}
	}
	u.Points -= amount
	u.UpdatedAt = r.nowF()
	return u.Points, nil
}

func (r *MemoryRepository) ListIDs(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	out := make([]int64, len(list))
	for i, u := range list {
		out[i] = u.ID
	}
	return out, nil
}

func (r *MemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *MemoryRepository) CountReferredBy(ctx context.Context, referrerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.ReferredBy != nil && *u.ReferredBy == referrerID {
			n++
		}
	}
	return n, nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.ReferredBy != nil {
		ref := *u.ReferredBy
		c.ReferredBy = &ref
	}
	return &c
}
