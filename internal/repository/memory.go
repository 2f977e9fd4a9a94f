package repository

import (
	"context"
	"sync"
	"time"

	"dealerdesk/internal/models"
)

// MemoryAvailabilityCache is the in-process fallback cache.
type MemoryAvailabilityCache struct {
	entries sync.Map
	ttl     time.Duration
}

type memoryEntry struct {
	slots     []models.SlotAvailability
	expiresAt time.Time
}

func NewMemoryAvailabilityCache(ttl time.Duration) *MemoryAvailabilityCache {
	return &MemoryAvailabilityCache{
		ttl: ttl,
	}
}

func (m *MemoryAvailabilityCache) GetSlots(ctx context.Context, key string) ([]models.SlotAvailability, error) {
	val, ok := m.entries.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.entries.Delete(key)
		return nil, nil
	}
	return entry.slots, nil
}

func (m *MemoryAvailabilityCache) SetSlots(ctx context.Context, key string, slots []models.SlotAvailability) error {
	m.entries.Store(key, memoryEntry{slots: slots, expiresAt: time.Now().Add(m.ttl)})
	return nil
}

func (m *MemoryAvailabilityCache) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.entries.Delete(key)
	}
	return nil
}
