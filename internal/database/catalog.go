package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dealerdesk/internal/models"

	"github.com/google/uuid"
)

func (db *DB) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	query := `SELECT id, make, model, year, status, test_drive_minutes, created_at, updated_at
              FROM vehicles WHERE id = ?`
	var v models.Vehicle
	err := db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Make, &v.Model, &v.Year, &v.Status, &v.TestDriveMinutes,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return &v, nil
}

func (db *DB) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	query := `SELECT id, make, model, year, status, test_drive_minutes, created_at, updated_at
              FROM vehicles ORDER BY make, model`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.Status,
			&v.TestDriveMinutes, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (db *DB) GetServiceType(ctx context.Context, id string) (*models.ServiceType, error) {
	query := `SELECT id, name, duration_minutes, price, is_active, created_at, updated_at
              FROM service_types WHERE id = ?`
	var s models.ServiceType
	err := db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service type: %w", err)
	}
	return &s, nil
}

func (db *DB) ListActiveServiceTypes(ctx context.Context) ([]models.ServiceType, error) {
	query := `SELECT id, name, duration_minutes, price, is_active, created_at, updated_at
              FROM service_types WHERE is_active = 1 ORDER BY name`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	defer rows.Close()

	var services []models.ServiceType
	for rows.Next() {
		var s models.ServiceType
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.IsActive,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service type: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// SeedCatalog upserts vehicles and service types from the administrative
// catalog file. Existing rows keep their id; fields are refreshed.
func (db *DB) SeedCatalog(ctx context.Context, vehicles []models.Vehicle, services []models.ServiceType) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		for _, v := range vehicles {
			if v.TestDriveMinutes <= 0 {
				v.TestDriveMinutes = models.DefaultTestDriveMinutes
			}
			if v.Status == "" {
				v.Status = models.VehicleAvailable
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO vehicles (id, make, model, year, status, test_drive_minutes, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
                 ON CONFLICT(id) DO UPDATE SET
                    make = excluded.make,
                    model = excluded.model,
                    year = excluded.year,
                    status = excluded.status,
                    test_drive_minutes = excluded.test_drive_minutes,
                    updated_at = excluded.updated_at`,
				v.ID, v.Make, v.Model, v.Year, v.Status, v.TestDriveMinutes, now, now)
			if err != nil {
				return fmt.Errorf("failed to seed vehicle %s: %w", v.ID, err)
			}
		}
		for _, s := range services {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO service_types (id, name, duration_minutes, price, is_active, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)
                 ON CONFLICT(id) DO UPDATE SET
                    name = excluded.name,
                    duration_minutes = excluded.duration_minutes,
                    price = excluded.price,
                    is_active = excluded.is_active,
                    updated_at = excluded.updated_at`,
				s.ID, s.Name, s.DurationMinutes, s.Price, s.IsActive, now, now)
			if err != nil {
				return fmt.Errorf("failed to seed service type %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

// GetCustomerByEmail looks a customer up by their email key.
func (db *DB) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	query := `SELECT id, email, name, phone, created_at, updated_at FROM customers WHERE email = ?`
	var c models.Customer
	err := db.QueryRowContext(ctx, query, email).Scan(
		&c.ID, &c.Email, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// upsertCustomerTx finds or creates the customer keyed by email inside
// the reservation transaction, so a failed upsert rolls the booking
// back with it. The customer's ID field is populated on return.
func upsertCustomerTx(ctx context.Context, tx *sql.Tx, customer *models.Customer) error {
	if customer.Email == "" {
		return errors.New("customer email is required")
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}

	now := time.Now()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO customers (id, email, name, phone, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(email) DO UPDATE SET
            name = excluded.name,
            phone = COALESCE(NULLIF(excluded.phone, ''), phone),
            updated_at = excluded.updated_at`,
		customer.ID, customer.Email, customer.Name, customer.Phone, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}

	// The insert keeps the existing id on conflict; read it back so the
	// booking rows reference the right customer.
	var id string
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM customers WHERE email = ?`, customer.Email).Scan(&id); err != nil {
		return fmt.Errorf("failed to resolve customer id: %w", err)
	}
	customer.ID = id
	return nil
}
