package models

import "time"

// TimeSlot is a recurring weekly slot template, not a slot instance.
// Edited only by administrative tooling; the engine treats it as read-only.
type TimeSlot struct {
	ID          int64  `yaml:"id" json:"id"`
	DayOfWeek   int    `yaml:"day_of_week" json:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	StartTime   string `yaml:"start_time" json:"start_time"`   // "HH:MM"
	EndTime     string `yaml:"end_time" json:"end_time"`
	MaxBookings int    `yaml:"max_bookings" json:"max_bookings"`
	IsActive    bool   `yaml:"is_active" json:"is_active"`
}

// Holiday blocks all capacity on its date. Recurring holidays match
// month and day in every year.
type Holiday struct {
	Date        time.Time `yaml:"date" json:"date"`
	IsRecurring bool      `yaml:"is_recurring" json:"is_recurring"`
	Name        string    `yaml:"name" json:"name"`
}

// CalendarEvent is a single entry on a calendar day: a booking or a
// holiday marker.
type CalendarEvent struct {
	Type      string   `json:"type"` // booking, holiday
	Title     string   `json:"title"`
	TimeSlot  string   `json:"time_slot,omitempty"`
	Booking   *Booking `json:"booking,omitempty"`
	IsHoliday bool     `json:"is_holiday,omitempty"`
}

// SlotCapacity is a day's slot template with its current occupancy.
type SlotCapacity struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxBookings int    `json:"max_bookings"`
	Booked      int    `json:"booked"`
	Remaining   int    `json:"remaining"`
}

// CalendarDay aggregates everything known about one date in a range.
type CalendarDay struct {
	Date          time.Time       `json:"date"`
	Weekday       int             `json:"weekday"`
	IsWorkingDay  bool            `json:"is_working_day"`
	IsHoliday     bool            `json:"is_holiday"`
	HolidayName   string          `json:"holiday_name,omitempty"`
	IsPast        bool            `json:"is_past"`
	Events        []CalendarEvent `json:"events"`
	TimeSlots     []SlotCapacity  `json:"time_slots"`
	BookingsCount int             `json:"bookings_count"`
}

// CalendarView is the assembled grid for a date range.
type CalendarView struct {
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	Days      []CalendarDay `json:"days"`
	Holidays  []Holiday     `json:"holidays"`
	TimeSlots []TimeSlot    `json:"time_slots"`
}

// CalendarOptions filters what the assembler includes.
type CalendarOptions struct {
	ResourceKind     string `json:"resource_kind,omitempty"` // empty = both kinds
	IncludeCancelled bool   `json:"include_cancelled,omitempty"`
}
