package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dealerdesk/internal/models"
	"dealerdesk/internal/schedule"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const bookingColumns = `id, reference, resource_kind, resource_id, resource_name, date,
                 time_slot, duration_minutes, status, customer_id, vehicle_info,
                 comment, created_at, updated_at, version`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var dateStr string
	err := row.Scan(
		&b.ID, &b.Reference, &b.ResourceKind, &b.ResourceID, &b.ResourceName, &dateStr,
		&b.TimeSlot, &b.DurationMinutes, &b.Status, &b.CustomerID, &b.VehicleInfo,
		&b.Comment, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Date, err = time.ParseInLocation(models.DateLayout, dateStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	return &b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// FindActiveBookings returns the capacity-occupying bookings for a
// resource on a date. Terminal statuses never occupy capacity and are
// filtered at the query.
func (db *DB) FindActiveBookings(ctx context.Context, kind, resourceID string, date time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE resource_kind = ? AND resource_id = ? AND date = ? AND status IN (?, ?)
              ORDER BY time_slot`
	rows, err := db.QueryContext(ctx, query, kind, resourceID,
		date.Format(models.DateLayout), models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to find active bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE date >= ? AND date <= ?
              ORDER BY date, time_slot, created_at`
	rows, err := db.QueryContext(ctx, query,
		start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ReserveBookings performs the atomic recheck-and-insert. Inside one
// transaction it upserts the customer, recounts overlapping
// capacity-occupying bookings for every requested slot and inserts the
// new rows as pending. Either everything commits or nothing does: a
// capacity violation on any booking, or a customer upsert failure,
// rolls the whole reservation back.
func (db *DB) ReserveBookings(ctx context.Context, customer *models.Customer, bookings []*models.Booking) error {
	if len(bookings) == 0 {
		return errors.New("no bookings to reserve")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := upsertCustomerTx(ctx, tx, customer); err != nil {
		return err
	}

	now := time.Now()
	for _, booking := range bookings {
		occupied, err := db.countOverlapsTx(ctx, tx, booking)
		if err != nil {
			return err
		}
		if occupied >= db.cfg.CapacityFor(booking.ResourceKind) {
			return ErrSlotConflict
		}

		booking.CustomerID = customer.ID
		booking.Status = models.StatusPending
		if err := insertBookingTx(ctx, tx, booking, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *DB) countOverlapsTx(ctx context.Context, tx *sql.Tx, booking *models.Booking) (int, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE resource_kind = ? AND resource_id = ? AND date = ? AND status IN (?, ?)`
	rows, err := tx.QueryContext(ctx, query, booking.ResourceKind, booking.ResourceID,
		booking.Date.Format(models.DateLayout), models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to recheck availability in tx: %w", err)
	}
	defer rows.Close()

	existing, err := collectBookings(rows)
	if err != nil {
		return 0, err
	}

	start, end, err := schedule.Window(booking.TimeSlot, booking.DurationMinutes)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownSlot, err)
	}

	occupied, _ := schedule.CountConflicts(start, end, existing)
	return occupied, nil
}

func insertBookingTx(ctx context.Context, tx *sql.Tx, booking *models.Booking, now time.Time) error {
	query := `INSERT INTO bookings (
                reference, resource_kind, resource_id, resource_name, date, time_slot,
                duration_minutes, status, customer_id, vehicle_info, comment,
                created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, query,
		booking.Reference,
		booking.ResourceKind,
		booking.ResourceID,
		booking.ResourceName,
		booking.Date.Format(models.DateLayout),
		booking.TimeSlot,
		booking.DurationMinutes,
		booking.Status,
		booking.CustomerID,
		booking.VehicleInfo,
		booking.Comment,
		now,
		now,
		1,
	)
	if err != nil {
		// The partial unique index on exclusive resources turns a racing
		// duplicate insert into a constraint violation.
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrSlotConflict
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// UpdateBookingStatusWithVersion applies a status transition guarded by
// optimistic locking. A reason, when present, is stored on the booking.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status, reason string) error {
	var result sql.Result
	var err error
	if reason != "" {
		query := `UPDATE bookings SET status = ?, comment = ?, version = version + 1, updated_at = ?
                  WHERE id = ? AND version = ?`
		result, err = db.ExecContext(ctx, query, status, reason, time.Now(), id, version)
	} else {
		query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
                  WHERE id = ? AND version = ?`
		result, err = db.ExecContext(ctx, query, status, time.Now(), id, version)
	}
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// GetBookedCount returns the number of capacity-occupying bookings for a
// resource, date and exact slot start. Used by the calendar badge.
func (db *DB) GetBookedCount(ctx context.Context, kind, resourceID string, date time.Time, slot string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE resource_kind = ? AND resource_id = ? AND date = ? AND time_slot = ?
              AND status IN (?, ?)`
	var count int
	err := db.QueryRowContext(ctx, query, kind, resourceID,
		date.Format(models.DateLayout), slot,
		models.StatusPending, models.StatusConfirmed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get booked count: %w", err)
	}
	return count, nil
}
