package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"referral-gate-bot/internal/content/domain"
	"referral-gate-bot/internal/content/repository"
)

// Catalog is the ordered, append-only collection of unlockable items.
type Catalog struct {
	repo   repository.Repository
	logger *zap.Logger
}

// NewCatalog returns a Catalog backed by repo.
func NewCatalog(repo repository.Repository, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{repo: repo, logger: logger}
}

// List returns items in insertion order.
func (c *Catalog) List(ctx context.Context) ([]*domain.Item, error) {
	items, err := c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return items, nil
}

// Get returns the item or domain.ErrContentNotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*domain.Item, error) {
	item, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: get %s: %w", id, err)
	}
	if item == nil {
		return nil, domain.ErrContentNotFound
	}
	return item, nil
}

// Create validates and stores a new item. Incomplete items are rejected with domain.ErrIncompleteItem.
func (c *Catalog) Create(ctx context.Context, title string, payload domain.Payload, createdBy int64) (*domain.Item, error) {
	item := &domain.Item{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(title),
		Payload:   payload,
		CreatedBy: createdBy,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := c.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("catalog: create: %w", err)
	}
	c.logger.Info("content item created", zap.String("id", item.ID), zap.Int64("seq", item.Seq), zap.String("kind", string(payload.Kind)))
	return item, nil
}

// Count returns the catalog size.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	return c.repo.Count(ctx)
}
