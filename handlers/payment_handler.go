package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"runClubAPI/internal/razorpay"
	"runClubAPI/internal/types/payment"
	"runClubAPI/services"
)

const maxWebhookBytes = 1 << 20

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /api/create-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var req payment.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.paymentService.CreateOrder(ctx, &req)
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

// POST /api/create-qr-order
func (h *PaymentHandler) CreateQROrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var req payment.CreateQROrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.paymentService.CreateQROrder(ctx, &req)
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

// GET /api/check-payment-status/{orderId}
func (h *PaymentHandler) CheckPaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	status, err := h.paymentService.CheckStatus(ctx, mux.Vars(r)["orderId"])
	if errors.Is(err, services.ErrOrderNotFound) {
		respondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// POST /api/verify-payment
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, payment.VerifyResponse{Success: false, Message: "Invalid request body"})
		return
	}

	resp, err := h.paymentService.VerifyPayment(&req)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, payment.VerifyResponse{Success: false, Message: verr.Message})
	case errors.Is(err, services.ErrInvalidSignature):
		respondWithJSON(w, http.StatusBadRequest, resp)
	case err != nil:
		respondWithGatewayError(w, err)
	default:
		respondWithJSON(w, http.StatusOK, resp)
	}
}

// POST /api/webhook
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	err = h.paymentService.HandleWebhook(ctx, body, r.Header.Get("X-Razorpay-Signature"))
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrInvalidSignature):
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	case errors.As(err, &verr):
		http.Error(w, verr.Message, http.StatusBadRequest)
		return
	case err != nil:
		zap.S().Errorf("webhook processing failed: %v", err)
		http.Error(w, "Error processing webhook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// GET /api/health
func (h *PaymentHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.paymentService.Health())
}

// respondWithGatewayError keeps gateway auth failures distinct from other
// gateway errors and from local failures.
func respondWithGatewayError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		respondWithError(w, http.StatusBadRequest, verr.Message)
		return
	}

	if razorpay.IsAuthError(err) {
		respondWithError(w, http.StatusUnauthorized, "payment gateway authentication failed")
		return
	}

	if razorpay.IsUnavailable(err) {
		respondWithError(w, http.StatusServiceUnavailable, "payment gateway unavailable")
		return
	}

	var rpErr *razorpay.Error
	if errors.As(err, &rpErr) && rpErr.Description != "" {
		code := rpErr.StatusCode
		if code < 400 || code > 599 {
			code = http.StatusBadGateway
		}
		respondWithError(w, code, rpErr.Description)
		return
	}

	zap.S().Errorf("payment request failed: %v", err)
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}
