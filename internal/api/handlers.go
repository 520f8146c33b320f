package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"velorent/internal/export"
	"velorent/internal/models"
)

type availabilityResponse struct {
	BikeID    string    `json:"bike_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type quoteResponse struct {
	BikeID     string `json:"bike_id"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

type createRentalRequest struct {
	BikeID     string    `json:"bike_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	WithHelmet bool      `json:"with_helmet"`
}

type bookingResponse struct {
	ID            int64     `json:"id"`
	BookingNumber int       `json:"booking_number"`
	RenterID      string    `json:"renter_id"`
	BikeID        string    `json:"bike_id"`
	BikeName      string    `json:"bike_name"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	WithHelmet    bool      `json:"with_helmet"`
	TotalCents    int64     `json:"total_cents"`
	Status        string    `json:"status"`
	Items         string    `json:"items"`
}

func toBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		BookingNumber: b.BookingNumber,
		RenterID:      b.RenterID,
		BikeID:        b.BikeID,
		BikeName:      b.BikeName,
		Start:         b.StartTime,
		End:           b.EndTime,
		WithHelmet:    b.WithHelmet,
		TotalCents:    b.TotalCents,
		Status:        b.Status,
		Items:         b.Items(),
	}
}

func (s *HTTPServer) handleBikes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bikes": s.rentals.GetBikes()})
}

// GET /api/v1/bikes/{id}/availability?start=...&end=...
func (s *HTTPServer) handleBikeAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bikes/")
	bikeID, ok := strings.CutSuffix(rest, "/availability")
	if !ok || bikeID == "" || strings.Contains(bikeID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	start, end, err := parseWindow(r, time.RFC3339)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	available, err := s.rentals.CheckAvailability(r.Context(), bikeID, start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, availabilityResponse{
		BikeID:    bikeID,
		Start:     start,
		End:       end,
		Available: available,
	})
}

// GET /api/v1/quote?bike_id=...&start=...&end=...&helmet=true
func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bikeID := strings.TrimSpace(r.URL.Query().Get("bike_id"))
	if bikeID == "" {
		writeError(w, http.StatusBadRequest, "bike_id is required")
		return
	}

	start, end, err := parseWindow(r, time.RFC3339)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	withHelmet := r.URL.Query().Get("helmet") == "true"

	total, err := s.rentals.QuotePrice(r.Context(), bikeID, start, end, withHelmet)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		BikeID:     bikeID,
		TotalCents: total,
		Currency:   s.cfg.Payment.Currency,
	})
}

// POST /api/v1/rentals
func (s *HTTPServer) handleCreateRental(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createRentalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := s.rentals.Rent(r.Context(), s.renterID(r), req.BikeID, req.Start, req.End, req.WithHelmet)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

// GET /api/v1/rentals/{id} and POST /api/v1/rentals/{id}/end
func (s *HTTPServer) handleRental(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/rentals/")

	if idPart, ok := strings.CutSuffix(rest, "/end"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid booking id")
			return
		}
		if err := s.rentals.EndRental(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusCompleted})
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.rentals.GetBooking(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{"booking": toBookingResponse(booking)}
	if live, err := s.rentals.GetLiveStatus(r.Context(), id); err == nil && live != nil {
		resp["live_status"] = live
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/renters/{id}/rentals
func (s *HTTPServer) handleRenterHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/renters/")
	renterID, ok := strings.CutSuffix(rest, "/rentals")
	if !ok || renterID == "" || strings.Contains(renterID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	bookings, err := s.rentals.GetRenterBookings(r.Context(), renterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rentals": out})
}

// GET /api/v1/leaderboard?limit=N
func (s *HTTPServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := s.cfg.Rental.LeaderboardSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.rentals.GetLeaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// GET /api/v1/rentals/export?start=2026-06-01&end=2026-06-30
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, end, err := parseWindow(r, "2006-01-02")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Конец периода — включительно
	end = end.AddDate(0, 0, 1)

	bookings, err := s.rentals.GetBookingsByDateRange(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	buf, err := export.BookingsWorkbook(start, end.AddDate(0, 0, -1), bookings)
	if err != nil {
		s.logger.Error().Err(err).Msg("export workbook")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := fmt.Sprintf("bookings_%s_%s.xlsx", start.Format("20060102"), end.AddDate(0, 0, -1).Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(buf.Bytes())
}

func parseWindow(r *http.Request, layout string) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, err := time.Parse(layout, strings.TrimSpace(q.Get("start")))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: expected %s", layout)
	}
	end, err := time.Parse(layout, strings.TrimSpace(q.Get("end")))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: expected %s", layout)
	}
	return start, end, nil
}
