package database

import (
	"context"
	"testing"
	"time"

	"dealerdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAndListTimeSlots(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	slots := []models.TimeSlot{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:30", MaxBookings: 3, IsActive: true},
		{DayOfWeek: 1, StartTime: "09:30", EndTime: "10:00", MaxBookings: 3, IsActive: true},
		{DayOfWeek: 2, StartTime: "09:00", EndTime: "09:30", MaxBookings: 2, IsActive: false},
	}
	require.NoError(t, db.SeedTimeSlots(ctx, slots))

	active, err := db.ListActiveTimeSlots(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "09:00", active[0].StartTime)
	assert.Equal(t, 3, active[0].MaxBookings)

	// Re-seeding replaces, not appends.
	require.NoError(t, db.SeedTimeSlots(ctx, slots[:1]))
	active, err = db.ListActiveTimeSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSeedAndListHolidays(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	holidays := []models.Holiday{
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local), IsRecurring: true, Name: "New Year's Day"},
		{Date: time.Date(2026, 11, 3, 0, 0, 0, 0, time.Local), IsRecurring: false, Name: "Inventory Day"},
		{Date: time.Date(2027, 5, 1, 0, 0, 0, 0, time.Local), IsRecurring: false, Name: "Out of Range"},
	}
	require.NoError(t, db.SeedHolidays(ctx, holidays))

	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2026, 11, 30, 0, 0, 0, 0, time.Local)
	got, err := db.ListHolidays(ctx, start, end)
	require.NoError(t, err)

	// Recurring entries come back regardless of the stored year; one-off
	// entries only inside the range.
	require.Len(t, got, 2)
	names := []string{got[0].Name, got[1].Name}
	assert.Contains(t, names, "New Year's Day")
	assert.Contains(t, names, "Inventory Day")
}
