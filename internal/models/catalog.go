package models

import "time"

// Vehicle is a unit of showroom stock eligible for test drives.
// A vehicle is an exclusive resource: capacity is always one.
type Vehicle struct {
	ID               string    `yaml:"id" json:"id"`
	Make             string    `yaml:"make" json:"make"`
	Model            string    `yaml:"model" json:"model"`
	Year             int       `yaml:"year" json:"year"`
	Status           string    `yaml:"status" json:"status"` // available, reserved, sold, servicing
	TestDriveMinutes int       `yaml:"test_drive_minutes" json:"test_drive_minutes"`
	CreatedAt        time.Time `yaml:"-" json:"created_at"`
	UpdatedAt        time.Time `yaml:"-" json:"updated_at"`
}

// ServiceType is a bookable workshop service. Shared-capacity resource:
// several customers may hold the same slot up to the engine-wide limit.
type ServiceType struct {
	ID              string    `yaml:"id" json:"id"`
	Name            string    `yaml:"name" json:"name"`
	DurationMinutes int       `yaml:"duration_minutes" json:"duration_minutes"`
	Price           float64   `yaml:"price" json:"price"`
	IsActive        bool      `yaml:"is_active" json:"is_active"`
	CreatedAt       time.Time `yaml:"-" json:"created_at"`
	UpdatedAt       time.Time `yaml:"-" json:"updated_at"`
}

// Customer is the person a booking belongs to, keyed by email.
type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
