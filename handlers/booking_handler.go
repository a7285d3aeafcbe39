package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"runClubAPI/internal/types/booking"
	"runClubAPI/middleware"
	"runClubAPI/services"
)

type BookingHandler struct {
	bookingService     *services.BookingService
	eligibilityService *services.EligibilityService
	ticketService      *services.TicketService
	userService        *services.UserService
}

func NewBookingHandler(bookingService *services.BookingService, eligibilityService *services.EligibilityService, ticketService *services.TicketService, userService *services.UserService) *BookingHandler {
	return &BookingHandler{
		bookingService:     bookingService,
		eligibilityService: eligibilityService,
		ticketService:      ticketService,
		userService:        userService,
	}
}

// GetEligibility reports whether the caller may still claim a free trial.
// A failed check is reported as not eligible.
func (h *BookingHandler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	phone := id.PhoneNumber
	if phone == "" {
		if u, err := h.userService.GetUser(ctx, id.UID); err == nil {
			phone = u.PhoneNumber
		}
	}

	result := h.eligibilityService.Check(ctx, id.UID, phone)
	resp := booking.EligibilityResponse{Eligible: result.Allowed(), Result: result.String()}
	if result == services.CheckFailed {
		resp.Result = services.Ineligible.String()
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req booking.CreateBookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.bookingService.Create(ctx, services.CreateBookingParams{
		UserID:      id.UID,
		PhoneNumber: id.PhoneNumber,
		EventID:     req.EventID,
		IsFreeTrial: req.IsFreeTrial,
		OrderID:     req.OrderID,
		PaymentID:   req.PaymentID,
		Signature:   req.Signature,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, b)
}

// GetBookings backs the dashboard and is polled; it is served from cache.
func (h *BookingHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	resp, err := h.bookingService.ListForUser(ctx, id.UID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GetNewBooking returns the just-created booking once, for the confirmation view.
func (h *BookingHandler) GetNewBooking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	b, found, err := h.bookingService.ConsumeNewBooking(ctx, id.UID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"newBooking": found, "booking": b})
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	b, err := h.bookingService.Get(ctx, id.UID, mux.Vars(r)["id"], id.Admin)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	t, err := h.ticketService.Issue(ctx, id.UID, mux.Vars(r)["id"], id.Admin)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

func (h *BookingHandler) GetTicketPDF(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	bookingID := mux.Vars(r)["id"]
	pdf, err := h.ticketService.PDF(ctx, id.UID, bookingID, id.Admin)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ticket-%s.pdf"`, bookingID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
