package service

import (
	"context"
	"testing"
	"time"

	"dealerdesk/internal/database"
	"dealerdesk/internal/models"
	"dealerdesk/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) FindActiveBookings(ctx context.Context, kind, resourceID string, date time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, kind, resourceID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}
func (m *mockRepo) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}
func (m *mockRepo) ReserveBookings(ctx context.Context, customer *models.Customer, bookings []*models.Booking) error {
	return m.Called(ctx, customer, bookings).Error(0)
}
func (m *mockRepo) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status, reason string) error {
	return m.Called(ctx, id, version, status, reason).Error(0)
}

type mockSchedules struct {
	mock.Mock
}

func (m *mockSchedules) ListActiveTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TimeSlot), args.Error(1)
}
func (m *mockSchedules) ListHolidays(ctx context.Context, start, end time.Time) ([]models.Holiday, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Holiday), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}
func (m *mockCatalog) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vehicle), args.Error(1)
}
func (m *mockCatalog) GetServiceType(ctx context.Context, id string) (*models.ServiceType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceType), args.Error(1)
}
func (m *mockCatalog) ListActiveServiceTypes(ctx context.Context) ([]models.ServiceType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ServiceType), args.Error(1)
}

type recordingReminders struct {
	ids []int64
	err error
}

func (r *recordingReminders) ScheduleReminder(ctx context.Context, bookingID int64, kind string) error {
	r.ids = append(r.ids, bookingID)
	return r.err
}

type fakeCache struct {
	data        map[string][]models.SlotAvailability
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]models.SlotAvailability)}
}

func (c *fakeCache) GetSlots(ctx context.Context, key string) ([]models.SlotAvailability, error) {
	return c.data[key], nil
}
func (c *fakeCache) SetSlots(ctx context.Context, key string, slots []models.SlotAvailability) error {
	c.data[key] = slots
	return nil
}
func (c *fakeCache) Invalidate(ctx context.Context, keys ...string) error {
	c.invalidated = append(c.invalidated, keys...)
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

var (
	// A fixed clock keeps past-date checks deterministic.
	fixedNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// 2026-09-07 is a Monday.
	monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	sunday = time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)
)

func mondayTemplates() []models.TimeSlot {
	return []models.TimeSlot{
		{ID: 1, DayOfWeek: 1, StartTime: "10:00", EndTime: "10:30", MaxBookings: 3, IsActive: true},
		{ID: 2, DayOfWeek: 1, StartTime: "10:30", EndTime: "11:00", MaxBookings: 3, IsActive: true},
		{ID: 3, DayOfWeek: 1, StartTime: "11:00", EndTime: "11:30", MaxBookings: 3, IsActive: true},
	}
}

func availableVehicle() *models.Vehicle {
	return &models.Vehicle{ID: "veh-1", Make: "BMW", Model: "320i", Status: models.VehicleAvailable, TestDriveMinutes: 60}
}

func newTestService(repo *mockRepo, schedules *mockSchedules, catalog *mockCatalog, reminders *recordingReminders, cache *fakeCache) *BookingService {
	logger := zerolog.Nop()
	svc := NewBookingService(repo, schedules, catalog, nil, reminders, cache, schedule.DefaultConfig(), &logger)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCreateTestDriveBooking(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	reminders := &recordingReminders{}
	cache := newFakeCache()
	svc := newTestService(repo, schedules, catalog, reminders, cache)

	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{}, nil)
	schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)
	catalog.On("GetVehicle", mock.Anything, "veh-1").Return(availableVehicle(), nil)
	repo.On("ReserveBookings", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		bookings := args.Get(2).([]*models.Booking)
		for i, b := range bookings {
			b.ID = int64(i + 1)
			b.Status = models.StatusPending
			b.Version = 1
		}
	}).Return(nil)

	booking, err := svc.CreateTestDriveBooking(context.Background(), "veh-1", monday, "10:00", models.Customer{Email: "a@b.com", Name: "Ann"})
	require.NoError(t, err)

	assert.Equal(t, models.KindTestDrive, booking.ResourceKind)
	assert.Equal(t, "BMW 320i", booking.ResourceName)
	assert.Equal(t, 60, booking.DurationMinutes)
	assert.NotEmpty(t, booking.Reference)
	assert.Equal(t, []int64{1}, reminders.ids)
	assert.Contains(t, cache.invalidated, "availability:test_drive:veh-1:2026-09-07")
}

func TestCreateTestDriveBooking_DateValidation(t *testing.T) {
	cases := []struct {
		name     string
		date     time.Time
		holidays []models.Holiday
		wantErr  error
	}{
		{"PastDate", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), nil, database.ErrPastDate},
		{"Holiday", monday, []models.Holiday{{Date: monday, Name: "Labor Day"}}, database.ErrHoliday},
		{"NonWorkingDay", sunday, nil, database.ErrNotWorkingDay},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mockRepo)
			schedules := new(mockSchedules)
			catalog := new(mockCatalog)
			svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

			schedules.On("ListHolidays", mock.Anything, tc.date, tc.date).Return(tc.holidays, nil)
			schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)

			_, err := svc.CreateTestDriveBooking(context.Background(), "veh-1", tc.date, "10:00", models.Customer{Email: "a@b.com", Name: "Ann"})
			assert.ErrorIs(t, err, tc.wantErr)

			// No occupancy query or insert happens for an ineligible date.
			repo.AssertNotCalled(t, "ReserveBookings", mock.Anything, mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "FindActiveBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateTestDriveBooking_UnknownSlot(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{}, nil)
	schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)

	// 10:15 is not a generated slot start.
	_, err := svc.CreateTestDriveBooking(context.Background(), "veh-1", monday, "10:15", models.Customer{Email: "a@b.com", Name: "Ann"})
	assert.ErrorIs(t, err, database.ErrUnknownSlot)
	repo.AssertNotCalled(t, "ReserveBookings", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTestDriveBooking_VehicleUnavailable(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{}, nil)
	schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)
	sold := availableVehicle()
	sold.Status = models.VehicleSold
	catalog.On("GetVehicle", mock.Anything, "veh-1").Return(sold, nil)

	_, err := svc.CreateTestDriveBooking(context.Background(), "veh-1", monday, "10:00", models.Customer{Email: "a@b.com", Name: "Ann"})
	assert.ErrorIs(t, err, database.ErrVehicleUnavailable)
}

func TestCreateTestDriveBooking_ReminderFailureIsNonFatal(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	reminders := &recordingReminders{err: assert.AnError}
	svc := newTestService(repo, schedules, catalog, reminders, newFakeCache())

	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{}, nil)
	schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)
	catalog.On("GetVehicle", mock.Anything, "veh-1").Return(availableVehicle(), nil)
	repo.On("ReserveBookings", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	booking, err := svc.CreateTestDriveBooking(context.Background(), "veh-1", monday, "10:00", models.Customer{Email: "a@b.com", Name: "Ann"})
	require.NoError(t, err)
	assert.NotNil(t, booking)
}

func TestCreateServiceBooking_MultipleTypes(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{}, nil)
	schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)
	catalog.On("GetServiceType", mock.Anything, "svc-oil").Return(&models.ServiceType{
		ID: "svc-oil", Name: "Oil Change", DurationMinutes: 30, Price: 89, IsActive: true,
	}, nil)
	catalog.On("GetServiceType", mock.Anything, "svc-brakes").Return(&models.ServiceType{
		ID: "svc-brakes", Name: "Brake Inspection", DurationMinutes: 60, Price: 129, IsActive: true,
	}, nil)

	var reserved []*models.Booking
	repo.On("ReserveBookings", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		reserved = args.Get(2).([]*models.Booking)
	}).Return(nil)

	result, err := svc.CreateServiceBooking(context.Background(), []string{"svc-oil", "svc-brakes"}, monday, "10:00",
		models.Customer{Email: "a@b.com", Name: "Ann"}, "Audi A4 2019")
	require.NoError(t, err)

	// One booking per service type, reserved in a single transaction.
	require.Len(t, reserved, 2)
	assert.Len(t, result.Bookings, 2)
	assert.InDelta(t, 218.0, result.TotalPrice, 0.001)
	assert.Equal(t, "Audi A4 2019", result.Bookings[0].VehicleInfo)
	assert.Equal(t, 30, result.Bookings[0].DurationMinutes)
	assert.Equal(t, 60, result.Bookings[1].DurationMinutes)
}

func TestCreateServiceBooking_InactiveType(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{}, nil)
	schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)
	catalog.On("GetServiceType", mock.Anything, "svc-detail").Return(&models.ServiceType{
		ID: "svc-detail", Name: "Full Detailing", DurationMinutes: 120, IsActive: false,
	}, nil)

	_, err := svc.CreateServiceBooking(context.Background(), []string{"svc-detail"}, monday, "10:00",
		models.Customer{Email: "a@b.com", Name: "Ann"}, "")
	assert.ErrorIs(t, err, database.ErrServiceInactive)
	repo.AssertNotCalled(t, "ReserveBookings", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckAvailability_HolidayShortCircuits(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{
		{Date: monday, Name: "Labor Day"},
	}, nil)

	availability, err := svc.CheckAvailability(context.Background(), models.KindTestDrive, "veh-1", monday, "10:00")
	require.NoError(t, err)
	assert.False(t, availability.Available)

	// The short circuit must not touch the booking store or catalog.
	repo.AssertNotCalled(t, "FindActiveBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	catalog.AssertNotCalled(t, "GetVehicle", mock.Anything, mock.Anything)
}

func TestCheckAvailability_OverlapConflicts(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{}, nil)
	catalog.On("GetVehicle", mock.Anything, "veh-1").Return(availableVehicle(), nil)
	repo.On("FindActiveBookings", mock.Anything, models.KindTestDrive, "veh-1", monday).Return([]models.Booking{
		{TimeSlot: "10:00", DurationMinutes: 60, Status: models.StatusConfirmed},
	}, nil)

	// 10:30 falls inside the 10:00+60min window.
	availability, err := svc.CheckAvailability(context.Background(), models.KindTestDrive, "veh-1", monday, "10:30")
	require.NoError(t, err)
	assert.False(t, availability.Available)
	assert.Equal(t, 1, availability.Occupied)
	require.Len(t, availability.Conflicts, 1)

	// 11:00 starts exactly at the window end; half-open intervals do not clash.
	availability, err = svc.CheckAvailability(context.Background(), models.KindTestDrive, "veh-1", monday, "11:00")
	require.NoError(t, err)
	assert.True(t, availability.Available)
}

func TestGetAvailability_Listing(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	cache := newFakeCache()
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, cache)

	schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)
	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{}, nil)
	catalog.On("GetVehicle", mock.Anything, "veh-1").Return(availableVehicle(), nil)
	repo.On("FindActiveBookings", mock.Anything, models.KindTestDrive, "veh-1", monday).Return([]models.Booking{
		{TimeSlot: "10:00", DurationMinutes: 60, Status: models.StatusPending},
	}, nil)

	listing, err := svc.GetAvailability(context.Background(), models.KindTestDrive, "veh-1", monday)
	require.NoError(t, err)
	require.Len(t, listing, 3)

	// 10:00 and 10:30 are blocked by the 60 minute test drive; 11:00 is free.
	assert.False(t, listing[0].Available)
	assert.False(t, listing[1].Available)
	assert.True(t, listing[2].Available)

	// The listing was cached; a second call never hits the store again.
	repo.AssertNumberOfCalls(t, "FindActiveBookings", 1)
	again, err := svc.GetAvailability(context.Background(), models.KindTestDrive, "veh-1", monday)
	require.NoError(t, err)
	assert.Equal(t, listing, again)
	repo.AssertNumberOfCalls(t, "FindActiveBookings", 1)
}

func TestGetAvailability_HolidayAllUnavailable(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	schedules.On("ListActiveTimeSlots", mock.Anything).Return(mondayTemplates(), nil)
	schedules.On("ListHolidays", mock.Anything, monday, monday).Return([]models.Holiday{
		{Date: monday, Name: "Labor Day"},
	}, nil)

	listing, err := svc.GetAvailability(context.Background(), models.KindService, "svc-oil", monday)
	require.NoError(t, err)
	require.Len(t, listing, 3)
	for _, slot := range listing {
		assert.False(t, slot.Available)
	}
	repo.AssertNotCalled(t, "FindActiveBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitions(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	cache := newFakeCache()
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, cache)

	pending := &models.Booking{
		ID: 7, ResourceKind: models.KindTestDrive, ResourceID: "veh-1",
		Date: monday, TimeSlot: "10:00", Status: models.StatusPending, Version: 1,
	}
	repo.On("GetBooking", mock.Anything, int64(7)).Return(pending, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(7), int64(1), models.StatusConfirmed, "").Return(nil)

	booking, err := svc.ConfirmBooking(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.Equal(t, int64(2), booking.Version)
	assert.Contains(t, cache.invalidated, "availability:test_drive:veh-1:2026-09-07")
}

func TestTransitions_Invalid(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	completed := &models.Booking{ID: 8, Status: models.StatusCompleted, Version: 3}
	repo.On("GetBooking", mock.Anything, int64(8)).Return(completed, nil)

	_, err := svc.CancelBooking(context.Background(), 8, "too late")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
	repo.AssertNotCalled(t, "UpdateBookingStatusWithVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitions_ConcurrentModification(t *testing.T) {
	repo := new(mockRepo)
	schedules := new(mockSchedules)
	catalog := new(mockCatalog)
	svc := newTestService(repo, schedules, catalog, &recordingReminders{}, newFakeCache())

	pending := &models.Booking{ID: 9, Status: models.StatusPending, Version: 1}
	repo.On("GetBooking", mock.Anything, int64(9)).Return(pending, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(9), int64(1), models.StatusCancelled, "").
		Return(database.ErrConcurrentModification)

	_, err := svc.CancelBooking(context.Background(), 9, "")
	assert.ErrorIs(t, err, database.ErrConcurrentModification)
}
