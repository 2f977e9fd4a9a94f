package service

import (
	"context"
	"fmt"
	"time"

	"dealerdesk/internal/database"
	"dealerdesk/internal/domain"
	"dealerdesk/internal/events"
	"dealerdesk/internal/models"
	"dealerdesk/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingService implements the availability and reservation surface.
// Scheduling parameters come in through an explicit config; the service
// holds no global state.
type BookingService struct {
	repo      domain.Repository
	schedules domain.ScheduleStore
	catalog   domain.CatalogStore
	eventBus  domain.EventPublisher
	reminders domain.ReminderScheduler
	cache     domain.AvailabilityCache
	cfg       schedule.Config
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewBookingService(
	repo domain.Repository,
	schedules domain.ScheduleStore,
	catalog domain.CatalogStore,
	eventBus domain.EventPublisher,
	reminders domain.ReminderScheduler,
	cache domain.AvailabilityCache,
	cfg schedule.Config,
	logger *zerolog.Logger,
) *BookingService {
	if cfg.MaxConcurrentBookings <= 0 {
		cfg.MaxConcurrentBookings = models.DefaultMaxConcurrentBookings
	}
	return &BookingService{
		repo:      repo,
		schedules: schedules,
		catalog:   catalog,
		eventBus:  eventBus,
		reminders: reminders,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// validateDate rejects past dates, holidays and non-working days before
// any occupancy query is issued.
func (s *BookingService) validateDate(date time.Time, holidays []models.Holiday) error {
	if schedule.IsPastDate(date, s.now()) {
		return database.ErrPastDate
	}
	if ok, _ := schedule.IsHoliday(date, holidays); ok {
		return database.ErrHoliday
	}
	if !schedule.IsWorkingDay(date, s.cfg) {
		return database.ErrNotWorkingDay
	}
	return nil
}

// resourceDuration resolves the canonical duration for a resource and
// checks its eligibility. The duration is copied onto the booking at
// creation and reused for every later window computation.
func (s *BookingService) resourceDuration(ctx context.Context, kind, resourceID string) (int, string, error) {
	switch kind {
	case models.KindTestDrive:
		vehicle, err := s.catalog.GetVehicle(ctx, resourceID)
		if err != nil {
			return 0, "", err
		}
		if vehicle.Status != models.VehicleAvailable {
			return 0, "", database.ErrVehicleUnavailable
		}
		minutes := vehicle.TestDriveMinutes
		if minutes <= 0 {
			minutes = s.cfg.TestDriveMinutes
		}
		return minutes, vehicle.Make + " " + vehicle.Model, nil
	case models.KindService:
		svc, err := s.catalog.GetServiceType(ctx, resourceID)
		if err != nil {
			if database.IsValidationError(err) {
				return 0, "", database.ErrServiceInactive
			}
			return 0, "", err
		}
		if !svc.IsActive {
			return 0, "", database.ErrServiceInactive
		}
		return svc.DurationMinutes, svc.Name, nil
	default:
		return 0, "", fmt.Errorf("unknown resource kind %q", kind)
	}
}

// CheckAvailability answers whether a single slot can take one more
// booking for the resource. Holiday and past dates short-circuit with
// no occupancy query.
func (s *BookingService) CheckAvailability(ctx context.Context, kind, resourceID string, date time.Time, slot string) (models.Availability, error) {
	capacity := s.cfg.CapacityFor(kind)
	result := models.Availability{Capacity: capacity}

	holidays, err := s.schedules.ListHolidays(ctx, date, date)
	if err != nil {
		return result, fmt.Errorf("failed to list holidays: %w", err)
	}

	if holiday, _ := schedule.IsHoliday(date, holidays); holiday ||
		schedule.IsPastDate(date, s.now()) || !schedule.IsWorkingDay(date, s.cfg) {
		return result, nil
	}

	duration, _, err := s.resourceDuration(ctx, kind, resourceID)
	if err != nil {
		return result, err
	}

	start, end, err := schedule.Window(slot, duration)
	if err != nil {
		return result, fmt.Errorf("%w: %v", database.ErrUnknownSlot, err)
	}

	existing, err := s.repo.FindActiveBookings(ctx, kind, resourceID, date)
	if err != nil {
		return result, fmt.Errorf("failed to load bookings: %w", err)
	}

	occupied, conflicts := schedule.CountConflicts(start, end, existing)
	result.Occupied = occupied
	result.Conflicts = conflicts
	result.Available = occupied < capacity
	return result, nil
}

// GetAvailability lists every slot of the date with its availability.
// A single occupancy fetch serves all slots; holiday and past dates
// produce an all-unavailable listing without touching the store.
func (s *BookingService) GetAvailability(ctx context.Context, kind, resourceID string, date time.Time) ([]models.SlotAvailability, error) {
	cacheKey := availabilityKey(kind, resourceID, date)
	if s.cache != nil {
		if cached, err := s.cache.GetSlots(ctx, cacheKey); err == nil && cached != nil {
			return cached, nil
		}
	}

	templates, err := s.schedules.ListActiveTimeSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}

	slots := schedule.SlotsFor(date, templates, s.cfg)
	if len(slots) == 0 {
		return nil, nil
	}

	capacity := s.cfg.CapacityFor(kind)

	holidays, err := s.schedules.ListHolidays(ctx, date, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	listing := make([]models.SlotAvailability, 0, len(slots))

	if holiday, _ := schedule.IsHoliday(date, holidays); holiday || schedule.IsPastDate(date, s.now()) {
		for _, slot := range slots {
			listing = append(listing, models.SlotAvailability{
				Time: slot.StartTime, Available: false, Capacity: capacity,
			})
		}
		return listing, nil
	}

	duration, _, err := s.resourceDuration(ctx, kind, resourceID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActiveBookings(ctx, kind, resourceID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	for _, slot := range slots {
		start, end, err := schedule.Window(slot.StartTime, duration)
		if err != nil {
			continue
		}
		occupied, _ := schedule.CountConflicts(start, end, existing)
		listing = append(listing, models.SlotAvailability{
			Time:      slot.StartTime,
			Available: occupied < capacity,
			Occupied:  occupied,
			Capacity:  capacity,
		})
	}

	if s.cache != nil {
		if err := s.cache.SetSlots(ctx, cacheKey, listing); err != nil {
			s.logger.Error().Err(err).Str("key", cacheKey).Msg("availability cache save failed")
		}
	}

	return listing, nil
}

// CreateTestDriveBooking reserves a vehicle for a test drive. The
// vehicle is an exclusive resource: one capacity-occupying booking per
// slot, enforced by the reservation transaction and the store's unique
// index.
func (s *BookingService) CreateTestDriveBooking(ctx context.Context, vehicleID string, date time.Time, slot string, customer models.Customer) (*models.Booking, error) {
	if err := s.validateRequest(ctx, date, slot); err != nil {
		return nil, err
	}

	duration, name, err := s.resourceDuration(ctx, models.KindTestDrive, vehicleID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		Reference:       uuid.NewString(),
		ResourceKind:    models.KindTestDrive,
		ResourceID:      vehicleID,
		ResourceName:    name,
		Date:            schedule.DateOnly(date),
		TimeSlot:        slot,
		DurationMinutes: duration,
	}

	if err := s.repo.ReserveBookings(ctx, &customer, []*models.Booking{booking}); err != nil {
		return nil, err
	}

	s.afterReservation(ctx, booking)
	return booking, nil
}

// CreateServiceBooking reserves one booking per requested service type
// for the same visit, all inside a single reservation transaction:
// either every service type fits or nothing is booked.
func (s *BookingService) CreateServiceBooking(ctx context.Context, serviceTypeIDs []string, date time.Time, slot string, customer models.Customer, vehicleInfo string) (*models.ServiceBookingResult, error) {
	if len(serviceTypeIDs) == 0 {
		return nil, database.ErrServiceInactive
	}
	if err := s.validateRequest(ctx, date, slot); err != nil {
		return nil, err
	}

	var bookings []*models.Booking
	var totalPrice float64
	for _, id := range serviceTypeIDs {
		svc, err := s.catalog.GetServiceType(ctx, id)
		if err != nil {
			if database.IsValidationError(err) {
				return nil, database.ErrServiceInactive
			}
			return nil, err
		}
		if !svc.IsActive {
			return nil, database.ErrServiceInactive
		}
		totalPrice += svc.Price
		bookings = append(bookings, &models.Booking{
			Reference:       uuid.NewString(),
			ResourceKind:    models.KindService,
			ResourceID:      svc.ID,
			ResourceName:    svc.Name,
			Date:            schedule.DateOnly(date),
			TimeSlot:        slot,
			DurationMinutes: svc.DurationMinutes,
			VehicleInfo:     vehicleInfo,
		})
	}

	if err := s.repo.ReserveBookings(ctx, &customer, bookings); err != nil {
		return nil, err
	}

	for _, booking := range bookings {
		s.afterReservation(ctx, booking)
	}

	return &models.ServiceBookingResult{Bookings: bookings, TotalPrice: totalPrice}, nil
}

// validateRequest checks date eligibility and that the requested time
// is one the slot generator produces for that date.
func (s *BookingService) validateRequest(ctx context.Context, date time.Time, slot string) error {
	holidays, err := s.schedules.ListHolidays(ctx, date, date)
	if err != nil {
		return fmt.Errorf("failed to list holidays: %w", err)
	}
	if err := s.validateDate(date, holidays); err != nil {
		return err
	}

	templates, err := s.schedules.ListActiveTimeSlots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list time slots: %w", err)
	}
	if !schedule.ContainsSlot(schedule.SlotsFor(date, templates, s.cfg), slot) {
		return database.ErrUnknownSlot
	}
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) ConfirmBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.transition(ctx, id, models.StatusConfirmed, "", events.EventBookingConfirmed)
}

func (s *BookingService) CancelBooking(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	return s.transition(ctx, id, models.StatusCancelled, reason, events.EventBookingCancelled)
}

func (s *BookingService) CompleteBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.transition(ctx, id, models.StatusCompleted, "", events.EventBookingCompleted)
}

func (s *BookingService) MarkNoShow(ctx context.Context, id int64) (*models.Booking, error) {
	return s.transition(ctx, id, models.StatusNoShow, "", events.EventBookingNoShow)
}

// transition applies a lifecycle change guarded by the transition table
// and optimistic locking. Moving a booking out of pending/confirmed
// frees its slot capacity implicitly: only those statuses are counted
// by the conflict resolver.
func (s *BookingService) transition(ctx context.Context, id int64, target, reason, eventType string) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(booking.Status, target) {
		return nil, fmt.Errorf("%w: %s to %s", database.ErrInvalidTransition, booking.Status, target)
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, target, reason); err != nil {
		return nil, err
	}

	booking.Status = target
	booking.Version++
	if reason != "" {
		booking.Comment = reason
	}

	s.publishEvent(eventType, booking, reason)
	s.invalidateAvailability(ctx, booking)
	return booking, nil
}

// afterReservation runs the best-effort side effects of a successful
// reservation: lifecycle event, reminder scheduling, cache
// invalidation. None of them can fail the booking.
func (s *BookingService) afterReservation(ctx context.Context, booking *models.Booking) {
	s.publishEvent(events.EventBookingCreated, booking, "")

	if s.reminders != nil {
		if err := s.reminders.ScheduleReminder(ctx, booking.ID, "booking_confirmation"); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("reminder scheduling failed")
		}
	}

	s.invalidateAvailability(ctx, booking)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		Reference:    booking.Reference,
		ResourceKind: booking.ResourceKind,
		ResourceID:   booking.ResourceID,
		ResourceName: booking.ResourceName,
		CustomerID:   booking.CustomerID,
		Status:       booking.Status,
		Date:         booking.Date,
		TimeSlot:     booking.TimeSlot,
		Reason:       reason,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) invalidateAvailability(ctx context.Context, booking *models.Booking) {
	if s.cache == nil {
		return
	}
	key := availabilityKey(booking.ResourceKind, booking.ResourceID, booking.Date)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("availability cache invalidation failed")
	}
}

func availabilityKey(kind, resourceID string, date time.Time) string {
	return fmt.Sprintf("availability:%s:%s:%s", kind, resourceID, date.Format(models.DateLayout))
}
