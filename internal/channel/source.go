// Package channel resolves the required channel set, either fixed from config or from the settings record.
package channel

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"referral-gate-bot/internal/platformsettings/domain"
	"referral-gate-bot/internal/platformsettings/repository"
)

// ErrStaticChannels is returned by administration calls when the channel set comes from config.
var ErrStaticChannels = errors.New("channel set is fixed by configuration")

const maxUpdateAttempts = 3

// Source returns the current required channel set.
type Source interface {
	RequiredChannels(ctx context.Context) ([]string, error)
}

// Admin changes the required channel set at runtime.
type Admin interface {
	Source
	Add(ctx context.Context, raw string) (channels []string, changed bool, err error)
	Remove(ctx context.Context, raw string) (channels []string, changed bool, err error)
}

// Static is a channel set fixed at startup.
type Static struct {
	channels []string
}

// NewStatic returns a Source over channels.
func NewStatic(channels []string) *Static {
	return &Static{channels: append([]string(nil), channels...)}
}

func (s *Static) RequiredChannels(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.channels...), nil
}

func (s *Static) Add(ctx context.Context, raw string) ([]string, bool, error) {
	return s.channels, false, ErrStaticChannels
}

func (s *Static) Remove(ctx context.Context, raw string) ([]string, bool, error) {
	return s.channels, false, ErrStaticChannels
}

// Dynamic reads the channel set from the versioned settings record on every call.
type Dynamic struct {
	repo   repository.Repository
	logger *zap.Logger
}

// NewDynamic returns a Source backed by repo.
func NewDynamic(repo repository.Repository, logger *zap.Logger) *Dynamic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dynamic{repo: repo, logger: logger}
}

func (d *Dynamic) RequiredChannels(ctx context.Context) ([]string, error) {
	s, err := d.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("channel: read settings: %w", err)
	}
	return s.RequiredChannels, nil
}

// Seed writes channels into a never-written record (version 0). Later runs leave it alone.
func (d *Dynamic) Seed(ctx context.Context, channels []string) error {
	if len(channels) == 0 {
		return nil
	}
	s, err := d.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("channel: read settings: %w", err)
	}
	if s.Version != 0 {
		return nil
	}
	if _, err := d.repo.UpdateChannels(ctx, channels, 0); err != nil && !errors.Is(err, domain.ErrVersionConflict) {
		return fmt.Errorf("channel: seed settings: %w", err)
	}
	d.logger.Info("seeded required channels", zap.Strings("channels", channels))
	return nil
}

func (d *Dynamic) Add(ctx context.Context, raw string) ([]string, bool, error) {
	return d.update(ctx, raw, (*domain.Settings).WithChannel)
}

func (d *Dynamic) Remove(ctx context.Context, raw string) ([]string, bool, error) {
	return d.update(ctx, raw, (*domain.Settings).WithoutChannel)
}

// update retries the read-modify-write on version conflicts.
func (d *Dynamic) update(ctx context.Context, raw string, apply func(*domain.Settings, string) ([]string, bool)) ([]string, bool, error) {
	channel, err := domain.NormalizeChannel(raw)
	if err != nil {
		return nil, false, err
	}
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		s, err := d.repo.Get(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("channel: read settings: %w", err)
		}
		next, changed := apply(s, channel)
		if !changed {
			return s.RequiredChannels, false, nil
		}
		updated, err := d.repo.UpdateChannels(ctx, next, s.Version)
		if err == nil {
			return updated.RequiredChannels, true, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, false, fmt.Errorf("channel: write settings: %w", err)
		}
		d.logger.Debug("settings version conflict, retrying", zap.Int("attempt", attempt+1))
	}
	return nil, false, domain.ErrVersionConflict
}
