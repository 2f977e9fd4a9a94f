package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"dealerdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubRepo struct {
	bookings []models.Booking
}

func (s *stubRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return nil, nil
}

func (s *stubRepo) FindActiveBookings(ctx context.Context, kind, resourceID string, date time.Time) ([]models.Booking, error) {
	return nil, nil
}

func (s *stubRepo) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	return s.bookings, nil
}

func (s *stubRepo) ReserveBookings(ctx context.Context, customer *models.Customer, bookings []*models.Booking) error {
	return nil
}

func (s *stubRepo) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status, reason string) error {
	return nil
}

func TestWorkbook(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	repo := &stubRepo{bookings: []models.Booking{
		{
			ID:              1,
			Reference:       "ref-1",
			ResourceKind:    models.KindTestDrive,
			ResourceName:    "BMW 320i",
			Date:            date,
			TimeSlot:        "10:00",
			DurationMinutes: 60,
			Status:          models.StatusConfirmed,
			CustomerID:      "cust-1",
		},
		{
			ID:              2,
			Reference:       "ref-2",
			ResourceKind:    models.KindService,
			ResourceName:    "Oil Change",
			Date:            date,
			TimeSlot:        "11:00",
			DurationMinutes: 30,
			Status:          models.StatusPending,
			CustomerID:      "cust-2",
		},
	}}

	logger := zerolog.Nop()
	exporter := NewExporter(repo, t.TempDir(), &logger)

	f, err := exporter.Workbook(context.Background(), date, date)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "2026-09-07")

	resource, err := f.GetCellValue(sheetName, "D3")
	require.NoError(t, err)
	assert.Equal(t, "BMW 320i", resource)

	status, err := f.GetCellValue(sheetName, "F4")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status)
}

func TestWriteStreamsWorkbook(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	repo := &stubRepo{}
	logger := zerolog.Nop()
	exporter := NewExporter(repo, t.TempDir(), &logger)

	var buf bytes.Buffer
	require.NoError(t, exporter.Write(context.Background(), &buf, date, date))
	assert.Greater(t, buf.Len(), 0)

	// The stream must be a readable workbook.
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	_, err = f.GetCellValue(sheetName, "A1")
	assert.NoError(t, err)
}
