package domain

import (
	"context"
	"time"

	"dealerdesk/internal/models"
)

// Repository is the reservation store contract. Creation happens only
// through ReserveBookings; mutation only through status transitions.
type Repository interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	FindActiveBookings(ctx context.Context, kind, resourceID string, date time.Time) ([]models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error)
	ReserveBookings(ctx context.Context, customer *models.Customer, bookings []*models.Booking) error
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status, reason string) error
}

// ScheduleStore reads the recurring slot templates and the holiday
// calendar. Both are owned by administrative tooling outside this core.
type ScheduleStore interface {
	ListActiveTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
	ListHolidays(ctx context.Context, start, end time.Time) ([]models.Holiday, error)
}

// CatalogStore resolves bookable resources.
type CatalogStore interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	GetServiceType(ctx context.Context, id string) (*models.ServiceType, error)
	ListActiveServiceTypes(ctx context.Context) ([]models.ServiceType, error)
}

// EventPublisher fans booking lifecycle events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ReminderScheduler enqueues a reminder for a booking. Best effort:
// callers log failures and never fail the surrounding operation.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, bookingID int64, kind string) error
}

// AvailabilityCache caches a day's availability listing. Get returns
// (nil, nil) on a miss.
type AvailabilityCache interface {
	GetSlots(ctx context.Context, key string) ([]models.SlotAvailability, error)
	SetSlots(ctx context.Context, key string, slots []models.SlotAvailability) error
	Invalidate(ctx context.Context, keys ...string) error
}

// BookingService is the engine's reservation surface.
type BookingService interface {
	CheckAvailability(ctx context.Context, kind, resourceID string, date time.Time, slot string) (models.Availability, error)
	GetAvailability(ctx context.Context, kind, resourceID string, date time.Time) ([]models.SlotAvailability, error)
	CreateTestDriveBooking(ctx context.Context, vehicleID string, date time.Time, slot string, customer models.Customer) (*models.Booking, error)
	CreateServiceBooking(ctx context.Context, serviceTypeIDs []string, date time.Time, slot string, customer models.Customer, vehicleInfo string) (*models.ServiceBookingResult, error)
	ConfirmBooking(ctx context.Context, id int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, id int64, reason string) (*models.Booking, error)
	CompleteBooking(ctx context.Context, id int64) (*models.Booking, error)
	MarkNoShow(ctx context.Context, id int64) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
}

// CalendarService assembles the renderable booking calendar.
type CalendarService interface {
	BuildCalendar(ctx context.Context, start, end time.Time, opts models.CalendarOptions) (*models.CalendarView, error)
}
