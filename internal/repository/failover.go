package repository

import (
	"context"
	"sync/atomic"
	"time"

	"dealerdesk/internal/domain"
	"dealerdesk/internal/models"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache serves from the primary (Redis) cache and
// falls back to the in-memory cache when the primary is unreachable,
// probing for recovery once a minute.
type FailoverAvailabilityCache struct {
	primary   domain.AvailabilityCache
	fallback  domain.AvailabilityCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverAvailabilityCache) GetSlots(ctx context.Context, key string) ([]models.SlotAvailability, error) {
	if !f.isDown.Load() {
		slots, err := f.primary.GetSlots(ctx, key)
		if err == nil {
			return slots, nil
		}
		f.logger.Error().Err(err).Msg("primary availability cache failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck = time.Now()
	}

	if f.isDown.Load() && time.Since(f.lastCheck) > time.Minute {
		slots, err := f.primary.GetSlots(ctx, key)
		if err == nil {
			f.isDown.Store(false)
			return slots, nil
		}
		f.lastCheck = time.Now()
	}

	return f.fallback.GetSlots(ctx, key)
}

func (f *FailoverAvailabilityCache) SetSlots(ctx context.Context, key string, slots []models.SlotAvailability) error {
	if !f.isDown.Load() {
		err := f.primary.SetSlots(ctx, key, slots)
		if err == nil {
			return nil
		}
		f.logger.Error().Err(err).Msg("primary availability cache write failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck = time.Now()
	}
	return f.fallback.SetSlots(ctx, key, slots)
}

// Invalidate clears both layers: a stale entry surviving in either
// cache would serve wrong availability after a reservation.
func (f *FailoverAvailabilityCache) Invalidate(ctx context.Context, keys ...string) error {
	var primaryErr error
	if !f.isDown.Load() {
		primaryErr = f.primary.Invalidate(ctx, keys...)
		if primaryErr != nil {
			f.logger.Error().Err(primaryErr).Msg("primary availability cache invalidation failed")
			f.isDown.Store(true)
			f.lastCheck = time.Now()
		}
	}
	if err := f.fallback.Invalidate(ctx, keys...); err != nil {
		return err
	}
	return primaryErr
}
