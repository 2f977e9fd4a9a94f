package models

// Booking statuses. Only pending and confirmed occupy slot capacity.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Resource kinds.
const (
	KindTestDrive = "test_drive"
	KindService   = "service"
)

// Vehicle availability statuses.
const (
	VehicleAvailable = "available"
	VehicleReserved  = "reserved"
	VehicleSold      = "sold"
	VehicleServicing = "servicing"
)

const (
	// DateLayout is the canonical date format for booking dates.
	DateLayout = "2006-01-02"

	// ClockLayout is the wall-clock format for slot times.
	ClockLayout = "15:04"
)

const (
	// DefaultMaxConcurrentBookings bounds service-bay occupancy per slot.
	DefaultMaxConcurrentBookings = 3

	// DefaultTestDriveMinutes is the canonical test drive duration.
	DefaultTestDriveMinutes = 60

	// DefaultSlotStepMinutes is the grid step for fixed-increment schedules.
	DefaultSlotStepMinutes = 30

	// ReminderHour is the hour of day the daily reminder scan runs.
	ReminderHour = 9

	// WorkerQueueSize is the in-memory reminder queue capacity.
	WorkerQueueSize = 256

	// DefaultCacheTTL is the availability cache TTL in seconds.
	DefaultCacheTTL = 5 * 60
)
