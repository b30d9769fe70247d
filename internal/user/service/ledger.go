// Package service implements the user ledger: idempotent user creation and atomic point mutations.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"referral-gate-bot/internal/user/domain"
)

// Store is the persistence the ledger needs. Implemented by repository.PostgresRepository.
type Store interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetOrCreate(ctx context.Context, u *domain.User) (*domain.User, bool, error)
	Register(ctx context.Context, u *domain.User, bonus int64) (domain.Registration, error)
	AddPoints(ctx context.Context, id, amount int64) (int64, error)
	SubtractPoints(ctx context.Context, id, amount int64) (int64, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
	CountReferredBy(ctx context.Context, referrerID int64) (int64, error)
}

// Ledger is the only writer of points and referred_by.
type Ledger struct {
	store  Store
	logger *zap.Logger
}

// NewLedger returns a Ledger over store. logger may be nil.
func NewLedger(store Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger}
}

// GetOrCreate returns the user for id, creating it with zero points on first contact.
// referredBy is only used on creation; a self reference is dropped. created reports whether this call created the record.
func (l *Ledger) GetOrCreate(ctx context.Context, id int64, referredBy *int64, displayName string) (*domain.User, bool, error) {
	if id <= 0 {
		return nil, false, domain.ErrInvalidUserID
	}
	if referredBy != nil && (*referredBy == id || *referredBy <= 0) {
		referredBy = nil
	}
	u, created, err := l.store.GetOrCreate(ctx, &domain.User{
		ID:          id,
		ReferredBy:  referredBy,
		DisplayName: strings.TrimSpace(displayName),
	})
	if err != nil {
		return nil, false, fmt.Errorf("ledger: get or create user %d: %w", id, err)
	}
	if created {
		l.logger.Info("user created", zap.Int64("user_id", id), zap.Bool("referred", referredBy != nil))
	}
	return u, created, nil
}

// Register creates id on first contact and, when referredBy names an existing user, credits it bonus points
// in the same atomic store operation. Existing users are returned unchanged; referredBy is then ignored.
func (l *Ledger) Register(ctx context.Context, id int64, referredBy *int64, displayName string, bonus int64) (domain.Registration, error) {
	if id <= 0 {
		return domain.Registration{}, domain.ErrInvalidUserID
	}
	if referredBy != nil && (*referredBy == id || *referredBy <= 0) {
		referredBy = nil
	}
	if referredBy != nil && bonus <= 0 {
		return domain.Registration{}, domain.ErrInvalidAmount
	}
	reg, err := l.store.Register(ctx, &domain.User{
		ID:          id,
		ReferredBy:  referredBy,
		DisplayName: strings.TrimSpace(displayName),
	}, bonus)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("ledger: register user %d: %w", id, err)
	}
	if reg.Created {
		l.logger.Info("user created", zap.Int64("user_id", id), zap.Bool("referred", reg.Credited))
	}
	return reg, nil
}

// Get returns the user or nil when absent.
func (l *Ledger) Get(ctx context.Context, id int64) (*domain.User, error) {
	return l.store.GetByID(ctx, id)
}

// Balance returns the user's points. Returns domain.ErrUserNotFound when absent.
func (l *Ledger) Balance(ctx context.Context, id int64) (int64, error) {
	u, err := l.store.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, domain.ErrUserNotFound
	}
	return u.Points, nil
}

// Credit atomically adds amount to the user's points and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, id, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return l.store.AddPoints(ctx, id, amount)
}

// Debit atomically subtracts amount if the balance covers it.
// On a short balance it returns *domain.InsufficientBalanceError and nothing changes.
func (l *Ledger) Debit(ctx context.Context, id, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return l.store.SubtractPoints(ctx, id, amount)
}

// UserIDs returns every known user id.
func (l *Ledger) UserIDs(ctx context.Context) ([]int64, error) {
	return l.store.ListIDs(ctx)
}

// UserCount returns the number of known users.
func (l *Ledger) UserCount(ctx context.Context) (int64, error) {
	return l.store.Count(ctx)
}

// ReferralCount returns how many users id has referred.
func (l *Ledger) ReferralCount(ctx context.Context, id int64) (int64, error) {
	return l.store.CountReferredBy(ctx, id)
}
