package schedule

import (
	"fmt"
	"sort"
	"time"

	"dealerdesk/internal/models"
)

// Config carries the scheduling parameters shared by the slot generator,
// conflict resolver and calendar assembler. It is passed explicitly into
// constructors; there is no process-wide default instance.
type Config struct {
	WorkingDays           [7]bool // indexed by time.Weekday
	DayStart              string  // "HH:MM"
	DayEnd                string
	SlotStepMinutes       int
	MaxConcurrentBookings int // service-bay occupancy bound per slot
	TestDriveMinutes      int
}

// DefaultConfig returns a Monday–Saturday schedule with a 30-minute grid.
func DefaultConfig() Config {
	return Config{
		WorkingDays:           [7]bool{false, true, true, true, true, true, true},
		DayStart:              "09:00",
		DayEnd:                "18:00",
		SlotStepMinutes:       models.DefaultSlotStepMinutes,
		MaxConcurrentBookings: models.DefaultMaxConcurrentBookings,
		TestDriveMinutes:      models.DefaultTestDriveMinutes,
	}
}

// CapacityFor returns the slot capacity for a resource kind.
// Test drive vehicles are exclusive resources.
func (c Config) CapacityFor(kind string) int {
	if kind == models.KindTestDrive {
		return 1
	}
	return c.MaxConcurrentBookings
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(models.ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes since midnight back to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DateOnly truncates a timestamp to its calendar date in local time.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsPastDate compares calendar dates only; time of day is ignored.
func IsPastDate(date, today time.Time) bool {
	return DateOnly(date).Before(DateOnly(today))
}

// IsWorkingDay reports whether the date falls on a configured working day.
func IsWorkingDay(date time.Time, cfg Config) bool {
	return cfg.WorkingDays[int(date.Weekday())]
}

// IsHoliday reports whether the date matches any holiday entry.
// Recurring holidays match month and day in every year.
func IsHoliday(date time.Time, holidays []models.Holiday) (bool, string) {
	d := DateOnly(date)
	for _, h := range holidays {
		hd := DateOnly(h.Date)
		if h.IsRecurring {
			if hd.Month() == d.Month() && hd.Day() == d.Day() {
				return true, h.Name
			}
			continue
		}
		if hd.Equal(d) {
			return true, h.Name
		}
	}
	return false, ""
}

// SlotsFor returns the active slot templates for the date's weekday,
// ordered by start time. Non-working days produce an empty sequence.
// Callers are expected to short-circuit holiday dates before calling.
func SlotsFor(date time.Time, templates []models.TimeSlot, cfg Config) []models.TimeSlot {
	if !IsWorkingDay(date, cfg) {
		return nil
	}

	weekday := int(date.Weekday())
	var slots []models.TimeSlot
	for _, t := range templates {
		if t.IsActive && t.DayOfWeek == weekday {
			slots = append(slots, t)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })
	return slots
}

// ContainsSlot reports whether a requested start time is one the
// generator produced. Matching is textual against template start times.
func ContainsSlot(slots []models.TimeSlot, start string) bool {
	for _, s := range slots {
		if s.StartTime == start {
			return true
		}
	}
	return false
}

// FixedGrid expands working hours into one degenerate template per step
// for every working weekday. This is the legacy fixed-increment walk
// expressed through the template model, so both schedule shapes share
// one slot truth.
func FixedGrid(cfg Config, capacity int) ([]models.TimeSlot, error) {
	start, err := ParseClock(cfg.DayStart)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(cfg.DayEnd)
	if err != nil {
		return nil, err
	}
	step := cfg.SlotStepMinutes
	if step <= 0 {
		step = models.DefaultSlotStepMinutes
	}
	if capacity < 1 {
		capacity = 1
	}
	if end <= start {
		return nil, fmt.Errorf("working hours end %s is not after start %s", cfg.DayEnd, cfg.DayStart)
	}

	var templates []models.TimeSlot
	var id int64 = 1
	for day := 0; day < 7; day++ {
		if !cfg.WorkingDays[day] {
			continue
		}
		for m := start; m+step <= end; m += step {
			templates = append(templates, models.TimeSlot{
				ID:          id,
				DayOfWeek:   day,
				StartTime:   FormatClock(m),
				EndTime:     FormatClock(m + step),
				MaxBookings: capacity,
				IsActive:    true,
			})
			id++
		}
	}
	return templates, nil
}

// Window computes the half-open minute interval [start, end) for a slot
// start time and a duration.
func Window(slot string, durationMinutes int) (int, int, error) {
	start, err := ParseClock(slot)
	if err != nil {
		return 0, 0, err
	}
	if durationMinutes <= 0 {
		return 0, 0, fmt.Errorf("invalid duration %d minutes", durationMinutes)
	}
	return start, start + durationMinutes, nil
}

// Overlaps tests two half-open intervals. A booking that starts exactly
// when another ends does not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// CountConflicts returns how many of the given bookings occupy capacity
// and overlap the candidate window, along with the conflicting bookings.
// Bookings in terminal statuses never count.
func CountConflicts(candidateStart, candidateEnd int, bookings []models.Booking) (int, []models.Booking) {
	occupied := 0
	var conflicts []models.Booking
	for _, b := range bookings {
		if !models.OccupiesCapacity(b.Status) {
			continue
		}
		bStart, bEnd, err := Window(b.TimeSlot, b.DurationMinutes)
		if err != nil {
			continue
		}
		if Overlaps(candidateStart, candidateEnd, bStart, bEnd) {
			occupied++
			conflicts = append(conflicts, b)
		}
	}
	return occupied, conflicts
}
