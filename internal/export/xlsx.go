// Package export renders booking reports as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"velorent/internal/models"

	"github.com/xuri/excelize/v2"
)

var columns = []string{"Booking #", "Renter", "Bike", "Start", "End", "Helmet", "Total", "Status"}

// BookingsWorkbook writes the bookings of a period into an in-memory
// XLSX workbook, one row per booking.
func BookingsWorkbook(start, end time.Time, bookings []*models.Booking) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		start.Format("2006-01-02"), end.Format("2006-01-02")))

	for i, header := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(columns), 2)
	_ = f.SetCellStyle(sheetName, "A2", lastHeader, headerStyle)

	for i, b := range bookings {
		row := i + 3
		values := []any{
			b.BookingNumber,
			b.RenterID,
			b.BikeName,
			b.StartTime.Format("2006-01-02 15:04"),
			b.EndTime.Format("2006-01-02 15:04"),
			b.WithHelmet,
			fmt.Sprintf("%.2f", float64(b.TotalCents)/100),
			b.Status,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "H", 20)
	_ = f.MergeCell(sheetName, "A1", lastHeader[:1]+"1")
	_ = f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return &buf, nil
}
