package models

import "time"

// Booking is a single reservation of a resource for one date and slot.
// Bookings are never deleted; they only move through status transitions.
type Booking struct {
	ID              int64     `json:"id"`
	Reference       string    `json:"reference"`
	ResourceKind    string    `json:"resource_kind"` // test_drive, service
	ResourceID      string    `json:"resource_id"`   // vehicle id or service type id
	ResourceName    string    `json:"resource_name"`
	Date            time.Time `json:"date"`
	TimeSlot        string    `json:"time_slot"` // "HH:MM", matches a TimeSlot.StartTime
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CustomerID      string    `json:"customer_id"`
	VehicleInfo     string    `json:"vehicle_info,omitempty"` // customer's own vehicle, service visits only
	Comment         string    `json:"comment,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// Availability is the conflict resolver's answer for one slot.
type Availability struct {
	Available bool      `json:"available"`
	Occupied  int       `json:"occupied"`
	Capacity  int       `json:"capacity"`
	Conflicts []Booking `json:"conflicts,omitempty"`
}

// SlotAvailability is one entry of a day's availability listing.
type SlotAvailability struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Occupied  int    `json:"occupied"`
	Capacity  int    `json:"capacity"`
}

// ServiceBookingResult is returned when booking one or more service types
// for the same visit: one booking per service type plus the total price.
type ServiceBookingResult struct {
	Bookings   []*Booking `json:"bookings"`
	TotalPrice float64    `json:"total_price"`
}
