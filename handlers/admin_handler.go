package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"runClubAPI/internal/notification"
	"runClubAPI/internal/ticket"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
	"runClubAPI/middleware"
	"runClubAPI/services"
)

const maxScanUploadBytes = 10 << 20

type AdminHandler struct {
	adminService        *services.AdminService
	bookingService      *services.BookingService
	ticketService       *services.TicketService
	eventService        *services.EventService
	notificationService *services.NotificationService
}

func NewAdminHandler(
	adminService *services.AdminService,
	bookingService *services.BookingService,
	ticketService *services.TicketService,
	eventService *services.EventService,
	notificationService *services.NotificationService,
) *AdminHandler {
	return &AdminHandler{
		adminService:        adminService,
		bookingService:      bookingService,
		ticketService:       ticketService,
		eventService:        eventService,
		notificationService: notificationService,
	}
}

// ============= USERS =============

// GET /api/v1/admin/users?q=&limit=
func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}

	users, err := h.adminService.ListUsers(ctx, r.URL.Query().Get("q"), limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, users)
}

// DELETE /api/v1/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := mux.Vars(r)["id"]
	if err := h.adminService.DeleteUser(ctx, userID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	if id, ok := middleware.GetIdentity(ctx); ok {
		zap.S().Infof("admin %s deleted user %s", id.UID, userID)
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// ============= BOOKINGS =============

// GET /api/v1/admin/bookings?status=&eventId=&userId=&limit=
func (h *AdminHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter, ok := bookingFilterFromQuery(w, r)
	if !ok {
		return
	}

	bookings, err := h.adminService.ListBookings(ctx, filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, bookings)
}

// PUT /api/v1/admin/bookings/{id}/status
func (h *AdminHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req booking.UpdateStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.bookingService.SetStatus(ctx, mux.Vars(r)["id"], req.Status, id.UID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, b)
}

// POST /api/v1/admin/bookings/{id}/reset
func (h *AdminHandler) ResetBooking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	b, err := h.bookingService.Reset(ctx, mux.Vars(r)["id"], id.UID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, b)
}

// ============= TICKETS =============

// POST /api/v1/admin/tickets/verify
func (h *AdminHandler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req booking.VerifyTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	respondWithJSON(w, http.StatusOK, h.ticketService.Verify(ctx, req.Text))
}

// POST /api/v1/admin/tickets/scan (multipart, field "image")
func (h *AdminHandler) ScanTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxScanUploadBytes)
	if err := r.ParseMultipartForm(maxScanUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid upload")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	result, err := h.ticketService.Scan(ctx, file)
	if errors.Is(err, ticket.ErrBadImage) {
		respondWithError(w, http.StatusBadRequest, "Invalid image")
		return
	}
	if errors.Is(err, ticket.ErrNoCode) {
		respondWithError(w, http.StatusUnprocessableEntity, "no code found")
		return
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// POST /api/v1/admin/tickets/{id}/redeem
func (h *AdminHandler) RedeemTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	b, err := h.bookingService.Redeem(ctx, mux.Vars(r)["id"], id.UID)
	if errors.Is(err, services.ErrTicketUsed) && b != nil {
		respondWithJSON(w, http.StatusConflict, booking.AlreadyUsedResponse{
			Error:       err.Error(),
			AlreadyUsed: true,
			UsedAt:      b.UsedAt,
			UsedBy:      b.UsedBy,
			Booking:     b,
		})
		return
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, b)
}

// ============= EVENTS =============

// GET /api/v1/admin/events lists every event, including inactive ones.
func (h *AdminHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	events, err := h.eventService.List(ctx, false)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, events)
}

// POST /api/v1/admin/events
func (h *AdminHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req event.UpsertEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ev, err := h.eventService.Create(ctx, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ev)
}

// PUT /api/v1/admin/events/{id}
func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req event.UpsertEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ev, err := h.eventService.Update(ctx, mux.Vars(r)["id"], &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ev)
}

// ============= NOTIFICATIONS =============

// POST /api/v1/admin/notifications/send
func (h *AdminHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req notification.SendReminderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.notificationService.SendReminder(ctx, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid "+key)
		return 0, false
	}
	return n, true
}
