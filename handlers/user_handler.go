package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"runClubAPI/internal/types/user"
	"runClubAPI/middleware"
	"runClubAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateProfile stores the sign-up form submitted after the first OTP login.
func (h *UserHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.userService.CreateUser(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	u, err := h.userService.GetUser(ctx, id.UID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.userService.UpdateProfile(ctx, id.UID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.userService.DeleteUser(ctx, id.UID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

func (h *UserHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stats, err := h.userService.GetStats(ctx, id.UID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// respondWithServiceError maps service errors onto status codes. Unknown
// errors are logged and hidden behind a generic message.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrOrderNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotEligible),
		errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrEventInactive),
		errors.Is(err, services.ErrPaymentUsed),
		errors.Is(err, services.ErrTicketUsed):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrPaymentRequired),
		errors.Is(err, services.ErrInvalidSignature),
		errors.Is(err, services.ErrPaymentMismatch),
		errors.Is(err, services.ErrEventNotPayable),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidDate):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		zap.S().Errorf("service unavailable: %v", err)
		respondWithError(w, http.StatusServiceUnavailable, services.ErrUnavailable.Error())
	default:
		zap.S().Errorf("request failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
