package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"dealerdesk/internal/domain"
	"dealerdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// Exporter renders booking ranges as Excel workbooks for the back
// office.
type Exporter struct {
	repo   domain.Repository
	path   string
	logger *zerolog.Logger
}

func NewExporter(repo domain.Repository, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		repo:   repo,
		path:   path,
		logger: logger,
	}
}

// Workbook builds an Excel file listing every booking in the range,
// one row per booking. The caller owns closing the file.
func (e *Exporter) Workbook(ctx context.Context, startDate, endDate time.Time) (*excelize.File, error) {
	bookings, err := e.repo.GetBookingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("error getting bookings: %w", err)
	}

	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Bookings: %s - %s",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout)))
	_ = f.MergeCell(sheetName, "A1", "I1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	writeHeaderRow(f)

	row := 3
	for i := range bookings {
		writeBookingRow(f, row, &bookings[i])
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "C", 14)
	_ = f.SetColWidth(sheetName, "D", "E", 24)
	_ = f.SetColWidth(sheetName, "F", "I", 18)

	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

// Write streams the workbook for the range into w.
func (e *Exporter) Write(ctx context.Context, w io.Writer, startDate, endDate time.Time) error {
	f, err := e.Workbook(ctx, startDate, endDate)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveRange writes the workbook into the configured exports directory
// and returns the file path.
func (e *Exporter) SaveRange(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.Workbook(ctx, startDate, endDate)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout),
		endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel export created")
	return filePath, nil
}

func writeHeaderRow(f *excelize.File) {
	headers := []string{"Date", "Time", "Kind", "Resource", "Customer", "Status", "Reference", "Duration (min)", "Comment"}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
}

func writeBookingRow(f *excelize.File, row int, b *models.Booking) {
	values := []interface{}{
		b.Date.Format(models.DateLayout),
		b.TimeSlot,
		b.ResourceKind,
		b.ResourceName,
		b.CustomerID,
		b.Status,
		b.Reference,
		b.DurationMinutes,
		b.Comment,
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, v)
	}
}
