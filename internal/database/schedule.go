package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dealerdesk/internal/models"
)

// ListActiveTimeSlots returns every active recurring slot template,
// ordered by weekday then start time.
func (db *DB) ListActiveTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	query := `SELECT id, day_of_week, start_time, end_time, max_bookings, is_active
              FROM time_slots WHERE is_active = 1
              ORDER BY day_of_week, start_time`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	defer rows.Close()

	var slots []models.TimeSlot
	for rows.Next() {
		var s models.TimeSlot
		if err := rows.Scan(&s.ID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.MaxBookings, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan time slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ListHolidays returns one-off holidays inside the range plus every
// recurring holiday regardless of its stored year. Recurring matching
// by month and day happens in the schedule package.
func (db *DB) ListHolidays(ctx context.Context, start, end time.Time) ([]models.Holiday, error) {
	query := `SELECT date, is_recurring, name FROM holidays
              WHERE is_recurring = 1 OR (date >= ? AND date <= ?)
              ORDER BY date`
	rows, err := db.QueryContext(ctx, query,
		start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []models.Holiday
	for rows.Next() {
		var h models.Holiday
		var dateStr string
		if err := rows.Scan(&dateStr, &h.IsRecurring, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.Date, err = time.ParseInLocation(models.DateLayout, dateStr, time.Local)
		if err != nil {
			return nil, fmt.Errorf("failed to parse holiday date %s: %w", dateStr, err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// SeedTimeSlots replaces the slot template table with the given set.
// Called at startup from the administrative catalog file.
func (db *DB) SeedTimeSlots(ctx context.Context, slots []models.TimeSlot) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM time_slots`); err != nil {
			return fmt.Errorf("failed to clear time slots: %w", err)
		}
		for _, s := range slots {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO time_slots (day_of_week, start_time, end_time, max_bookings, is_active)
                 VALUES (?, ?, ?, ?, ?)`,
				s.DayOfWeek, s.StartTime, s.EndTime, s.MaxBookings, s.IsActive)
			if err != nil {
				return fmt.Errorf("failed to seed time slot: %w", err)
			}
		}
		return nil
	})
}

// SeedHolidays replaces the holiday table with the given set.
func (db *DB) SeedHolidays(ctx context.Context, holidays []models.Holiday) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM holidays`); err != nil {
			return fmt.Errorf("failed to clear holidays: %w", err)
		}
		for _, h := range holidays {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO holidays (date, is_recurring, name) VALUES (?, ?, ?)`,
				h.Date.Format(models.DateLayout), h.IsRecurring, h.Name)
			if err != nil {
				return fmt.Errorf("failed to seed holiday: %w", err)
			}
		}
		return nil
	})
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
