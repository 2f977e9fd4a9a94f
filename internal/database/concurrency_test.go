package database

import (
	"context"
	"sync"
	"testing"

	"dealerdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentTestDriveReservation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			booking := testBooking(models.KindTestDrive, "veh-1", "10:00", 60)
			results <- db.ReserveBookings(ctx, testCustomer(), []*models.Booking{booking})
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	conflictCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case assert.ErrorIs(t, err, ErrSlotConflict):
			conflictCount++
		}
	}

	// A vehicle is exclusive: exactly one racing reservation wins.
	assert.Equal(t, 1, successCount, "only one test drive should win the slot")
	assert.Equal(t, numGoroutines-1, conflictCount)
}

func TestConcurrentServiceReservation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			booking := testBooking(models.KindService, "svc-oil", "09:00", 30)
			results <- db.ReserveBookings(ctx, testCustomer(), []*models.Booking{booking})
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		}
	}

	// Shared capacity admits exactly MaxConcurrentBookings winners.
	assert.Equal(t, db.cfg.MaxConcurrentBookings, successCount)

	active, err := db.FindActiveBookings(ctx, models.KindService, "svc-oil",
		testBooking(models.KindService, "svc-oil", "09:00", 30).Date)
	require.NoError(t, err)
	assert.Len(t, active, db.cfg.MaxConcurrentBookings)
}
