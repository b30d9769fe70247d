package repository

import (
	"context"

	"referral-gate-bot/internal/user/domain"
)

// Repository defines persistence for the user ledger.
// Mutations of points are single atomic statements; callers never read-modify-write.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetOrCreate inserts u unless a user with u.ID exists. created is true only for the caller whose insert won.
	// When the user exists the stored record is returned unchanged.
	GetOrCreate(ctx context.Context, u *domain.User) (user *domain.User, created bool, err error)
	// Register creates u and credits bonus to u.ReferredBy as one atomic step. A referrer that does not exist
	// is dropped. When the user already exists nothing changes and Created is false.
	Register(ctx context.Context, u *domain.User, bonus int64) (domain.Registration, error)
	// AddPoints atomically increments points and returns the new balance. Returns domain.ErrUserNotFound if absent.
	AddPoints(ctx context.Context, id, amount int64) (int64, error)
	// SubtractPoints atomically decrements points only when the balance covers amount.
	// Returns *domain.InsufficientBalanceError (no mutation) or domain.ErrUserNotFound.
	SubtractPoints(ctx context.Context, id, amount int64) (int64, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
	CountReferredBy(ctx context.Context, referrerID int64) (int64, error)
}
