package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dealerdesk/internal/domain"
	"dealerdesk/internal/models"
	"dealerdesk/internal/schedule"

	"github.com/rs/zerolog"
)

// CalendarAssembler builds the renderable booking calendar for a date
// range. The three top-level fetches run concurrently; the per-day
// aggregation is a pure in-memory pass, so a month view costs exactly
// three queries.
type CalendarAssembler struct {
	repo      domain.Repository
	schedules domain.ScheduleStore
	cfg       schedule.Config
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewCalendarAssembler(repo domain.Repository, schedules domain.ScheduleStore, cfg schedule.Config, logger *zerolog.Logger) *CalendarAssembler {
	return &CalendarAssembler{
		repo:      repo,
		schedules: schedules,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (c *CalendarAssembler) BuildCalendar(ctx context.Context, start, end time.Time, opts models.CalendarOptions) (*models.CalendarView, error) {
	start = schedule.DateOnly(start)
	end = schedule.DateOnly(end)
	if end.Before(start) {
		return nil, fmt.Errorf("calendar range end %s is before start %s",
			end.Format(models.DateLayout), start.Format(models.DateLayout))
	}

	var (
		wg        sync.WaitGroup
		templates []models.TimeSlot
		holidays  []models.Holiday
		bookings  []models.Booking

		slotsErr, holidaysErr, bookingsErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		templates, slotsErr = c.schedules.ListActiveTimeSlots(ctx)
	}()
	go func() {
		defer wg.Done()
		holidays, holidaysErr = c.schedules.ListHolidays(ctx, start, end)
	}()
	go func() {
		defer wg.Done()
		bookings, bookingsErr = c.repo.GetBookingsByDateRange(ctx, start, end)
	}()
	wg.Wait()

	if slotsErr != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", slotsErr)
	}
	if holidaysErr != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", holidaysErr)
	}
	if bookingsErr != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", bookingsErr)
	}

	daily := make(map[string][]models.Booking)
	for _, b := range bookings {
		if opts.ResourceKind != "" && b.ResourceKind != opts.ResourceKind {
			continue
		}
		if !opts.IncludeCancelled && b.Status == models.StatusCancelled {
			continue
		}
		key := b.Date.Format(models.DateLayout)
		daily[key] = append(daily[key], b)
	}

	view := &models.CalendarView{
		StartDate: start,
		EndDate:   end,
		Holidays:  holidays,
		TimeSlots: templates,
	}

	today := c.now()
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		view.Days = append(view.Days, c.assembleDay(date, today, templates, holidays, daily[date.Format(models.DateLayout)]))
	}

	return view, nil
}

func (c *CalendarAssembler) assembleDay(date, today time.Time, templates []models.TimeSlot, holidays []models.Holiday, dayBookings []models.Booking) models.CalendarDay {
	isHoliday, holidayName := schedule.IsHoliday(date, holidays)

	day := models.CalendarDay{
		Date:         date,
		Weekday:      int(date.Weekday()),
		IsWorkingDay: schedule.IsWorkingDay(date, c.cfg),
		IsHoliday:    isHoliday,
		HolidayName:  holidayName,
		IsPast:       schedule.IsPastDate(date, today),
	}

	if isHoliday {
		day.Events = append(day.Events, models.CalendarEvent{
			Type:      "holiday",
			Title:     holidayName,
			IsHoliday: true,
		})
	}

	for i := range dayBookings {
		b := dayBookings[i]
		day.Events = append(day.Events, models.CalendarEvent{
			Type:     "booking",
			Title:    b.ResourceName,
			TimeSlot: b.TimeSlot,
			Booking:  &dayBookings[i],
		})
		if models.OccupiesCapacity(b.Status) {
			day.BookingsCount++
		}
	}

	// Holidays zero out every slot regardless of template capacity.
	for _, slot := range schedule.SlotsFor(date, templates, c.cfg) {
		capacity := slot.MaxBookings
		if isHoliday {
			capacity = 0
		}
		booked := 0
		for _, b := range dayBookings {
			if b.TimeSlot == slot.StartTime && models.OccupiesCapacity(b.Status) {
				booked++
			}
		}
		remaining := capacity - booked
		if remaining < 0 {
			remaining = 0
		}
		day.TimeSlots = append(day.TimeSlots, models.SlotCapacity{
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			MaxBookings: capacity,
			Booked:      booked,
			Remaining:   remaining,
		})
	}

	return day
}
