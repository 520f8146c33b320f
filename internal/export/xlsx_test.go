package export

import (
	"bytes"
	"testing"
	"time"

	"velorent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBookingsWorkbook(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	bookings := []*models.Booking{
		{
			BookingNumber: 205,
			RenterID:      "renter-42",
			BikeName:      "Canyon Roadlite",
			StartTime:     time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
			EndTime:       time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC),
			WithHelmet:    true,
			TotalCents:    1268,
			Status:        models.StatusCompleted,
		},
		{
			BookingNumber: 317,
			RenterID:      "renter-7",
			BikeName:      "Trek Marlin 7",
			StartTime:     time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC),
			EndTime:       time.Date(2026, 6, 2, 10, 30, 0, 0, time.UTC),
			WithHelmet:    false,
			TotalCents:    400,
			Status:        models.StatusActive,
		},
	}

	buf, err := BookingsWorkbook(start, end, bookings)
	require.NoError(t, err)
	require.NotNil(t, buf)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Bookings"}, f.GetSheetList())

	period, err := f.GetCellValue("Bookings", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Period: 2026-06-01 - 2026-06-30", period)

	header, err := f.GetCellValue("Bookings", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Booking #", header)

	renter, err := f.GetCellValue("Bookings", "B3")
	require.NoError(t, err)
	assert.Equal(t, "renter-42", renter)

	total, err := f.GetCellValue("Bookings", "G3")
	require.NoError(t, err)
	assert.Equal(t, "12.68", total)

	status, err := f.GetCellValue("Bookings", "H4")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, status)
}

func TestBookingsWorkbookEmpty(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	buf, err := BookingsWorkbook(start, start.AddDate(0, 1, 0), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.Bytes())
}
