package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"runClubAPI/internal/types/booking"
	"runClubAPI/services"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// GET /api/v1/admin/analytics
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	analytics, err := h.analyticsService.Analytics(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, analytics)
}

// GET /api/v1/admin/reports/bookings?format=csv|json&status=&eventId=
func (h *AnalyticsHandler) ExportBookings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = services.FormatCSV
	}

	filter, ok := bookingFilterFromQuery(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.analyticsService.ExportBookings(ctx, filter, format, &buf); err != nil {
		respondWithServiceError(w, err)
		return
	}

	contentType := "text/csv"
	if format == services.FormatJSON {
		contentType = "application/json"
	}
	filename := fmt.Sprintf("bookings-%s.%s", time.Now().UTC().Format("20060102"), format)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func bookingFilterFromQuery(w http.ResponseWriter, r *http.Request) (booking.Filter, bool) {
	q := r.URL.Query()
	filter := booking.Filter{
		Status:  booking.Status(q.Get("status")),
		EventID: q.Get("eventId"),
		UserID:  q.Get("userId"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondWithError(w, http.StatusBadRequest, services.ErrInvalidStatus.Error())
		return filter, false
	}

	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return filter, false
	}
	filter.Limit = limit
	return filter, true
}
