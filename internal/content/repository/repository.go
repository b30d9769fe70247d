package repository

import (
	"context"

	"referral-gate-bot/internal/content/domain"
)

// Repository defines persistence for catalog items.
type Repository interface {
	// List returns all items in insertion order.
	List(ctx context.Context) ([]*domain.Item, error)
	// GetByID returns the item or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	// Create stores a validated item and fills Seq and CreatedAt.
	Create(ctx context.Context, item *domain.Item) error
	// Count returns the number of stored items.
	Count(ctx context.Context) (int64, error)
}
