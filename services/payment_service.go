package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"runClubAPI/internal/ledger"
	"runClubAPI/internal/razorpay"
	"runClubAPI/internal/ticket"
	"runClubAPI/internal/timestamp"
	"runClubAPI/internal/types/payment"
)

var ErrOrderNotFound = errors.New("order not found")

// Gateway is the subset of the Razorpay client the payment service uses.
type Gateway interface {
	Initialized() bool
	KeyIDSet() bool
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	OrderPayments(ctx context.Context, orderID string) ([]razorpay.Payment, error)
	CreatePaymentLink(ctx context.Context, req razorpay.PaymentLinkRequest) (*razorpay.PaymentLink, error)
	FetchPaymentLink(ctx context.Context, id string) (*razorpay.PaymentLink, error)
}

type PaymentService struct {
	gateway       Gateway
	ledger        ledger.Ledger
	keySecret     string
	webhookSecret string
	mode          string
	log           *zap.SugaredLogger
	now           func() time.Time
}

func NewPaymentService(gateway Gateway, l ledger.Ledger, keySecret, webhookSecret, mode string, log *zap.SugaredLogger) *PaymentService {
	if l == nil {
		l = ledger.Nop{}
	}
	return &PaymentService{
		gateway:       gateway,
		ledger:        l,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		mode:          mode,
		log:           log,
		now:           time.Now,
	}
}

func validateOrder(req *payment.CreateOrderRequest) error {
	if req.Amount <= 0 {
		return &ValidationError{Message: "amount must be greater than 0"}
	}
	var missing []string
	if strings.TrimSpace(req.Currency) == "" {
		missing = append(missing, "currency")
	}
	if strings.TrimSpace(req.EventID) == "" {
		missing = append(missing, "eventId")
	}
	if strings.TrimSpace(req.UserID) == "" {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(req.EventName) == "" {
		missing = append(missing, "eventName")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "missing required fields: " + strings.Join(missing, ", ")}
	}
	return nil
}

func (s *PaymentService) receipt() string {
	return fmt.Sprintf("rcpt_%d", s.now().UnixMilli())
}

func orderNotes(req *payment.CreateOrderRequest) map[string]string {
	return map[string]string{
		"eventId":   req.EventID,
		"userId":    req.UserID,
		"eventName": req.EventName,
	}
}

// CreateOrder validates the request and creates a gateway order. The gateway
// is not called for invalid requests.
func (s *PaymentService) CreateOrder(ctx context.Context, req *payment.CreateOrderRequest) (*payment.OrderResponse, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	receipt := s.receipt()
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  receipt,
		Notes:    orderNotes(req),
	})
	if err != nil {
		s.log.Errorf("create order failed for user %s event %s: %v", req.UserID, req.EventID, err)
		return nil, err
	}

	s.record(ctx, ledger.OrderRecord{
		OrderID: order.ID, Kind: "order", Amount: order.Amount, Currency: order.Currency, Receipt: receipt,
		EventID: req.EventID, UserID: req.UserID, EventName: req.EventName, CreatedAt: s.now().UTC(),
	})

	s.log.Infof("order %s created: %d %s for user %s", order.ID, order.Amount, order.Currency, req.UserID)
	return &payment.OrderResponse{ID: order.ID, Currency: order.Currency, Amount: order.Amount}, nil
}

// CreateQROrder creates a UPI payment link and returns it as a QR image.
func (s *PaymentService) CreateQROrder(ctx context.Context, req *payment.CreateQROrderRequest) (*payment.QROrderResponse, error) {
	if err := validateOrder(&req.CreateOrderRequest); err != nil {
		return nil, err
	}

	customer := &razorpay.Customer{Name: req.CustomerName, Email: req.CustomerEmail, Contact: req.CustomerContact}
	if req.Customer != nil {
		customer = &razorpay.Customer{Name: req.Customer.Name, Email: req.Customer.Email, Contact: req.Customer.Contact}
	}
	if *customer == (razorpay.Customer{}) {
		customer = nil
	}

	receipt := s.receipt()
	link, err := s.gateway.CreatePaymentLink(ctx, razorpay.PaymentLinkRequest{
		Amount:      req.Amount,
		Currency:    strings.ToUpper(req.Currency),
		Description: req.EventName,
		ReferenceID: receipt,
		Customer:    customer,
		UPILink:     true,
		Notes:       orderNotes(&req.CreateOrderRequest),
	})
	if err != nil {
		s.log.Errorf("create payment link failed for user %s event %s: %v", req.UserID, req.EventID, err)
		return nil, err
	}

	png, err := ticket.TextPNG(link.ShortURL, ticket.DefaultQRSize)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ledger.OrderRecord{
		OrderID: link.ID, Kind: "payment_link", Amount: link.Amount, Currency: link.Currency, Receipt: receipt,
		EventID: req.EventID, UserID: req.UserID, EventName: req.EventName, CreatedAt: s.now().UTC(),
	})

	return &payment.QROrderResponse{
		ID:       link.ID,
		QRCode:   ticket.DataURL(png),
		ShortURL: link.ShortURL,
		Amount:   link.Amount,
		Currency: link.Currency,
		Status:   link.Status,
	}, nil
}

// CheckStatus reports whether an order or payment link has a captured payment.
func (s *PaymentService) CheckStatus(ctx context.Context, id string) (*payment.StatusResponse, error) {
	if strings.HasPrefix(id, "plink_") {
		return s.checkPaymentLink(ctx, id)
	}

	payments, err := s.gateway.OrderPayments(ctx, id)
	if err != nil {
		if razorpay.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	for _, p := range payments {
		if p.Status == razorpay.PaymentCaptured {
			return &payment.StatusResponse{Status: payment.StatusPaid, PaymentID: p.ID, OrderID: id}, nil
		}
	}
	return &payment.StatusResponse{Status: payment.StatusPending}, nil
}

func (s *PaymentService) checkPaymentLink(ctx context.Context, id string) (*payment.StatusResponse, error) {
	link, err := s.gateway.FetchPaymentLink(ctx, id)
	if err != nil {
		if razorpay.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if link.Status == payment.StatusPaid {
		resp := &payment.StatusResponse{Status: payment.StatusPaid, OrderID: link.OrderID}
		for _, p := range link.Payments {
			if p.Status == razorpay.PaymentCaptured {
				resp.PaymentID = p.PaymentID
				break
			}
		}
		return resp, nil
	}
	return &payment.StatusResponse{Status: payment.StatusPending}, nil
}

// VerifyPayment checks a checkout callback signature. It never touches bookings.
func (s *PaymentService) VerifyPayment(req *payment.VerifyRequest) (*payment.VerifyResponse, error) {
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, &ValidationError{Message: "razorpay_order_id, razorpay_payment_id and razorpay_signature are required"}
	}

	if !razorpay.VerifyPaymentSignature(s.keySecret, req.OrderID, req.PaymentID, req.Signature) {
		s.log.Warnf("payment signature mismatch for order %s", req.OrderID)
		return &payment.VerifyResponse{Success: false, Message: "Payment verification failed"}, ErrInvalidSignature
	}

	return &payment.VerifyResponse{Success: true, Message: "Payment verified successfully"}, nil
}

// HandleWebhook authenticates and logs a gateway event. Without a webhook
// secret the signature is not checked. Bookings are never modified here.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.webhookSecret == "" {
		s.log.Warn("RAZORPAY_WEBHOOK_SECRET not set, skipping signature verification")
	} else if !razorpay.VerifyWebhookSignature(s.webhookSecret, body, signature) {
		s.log.Warn("webhook signature mismatch")
		return ErrInvalidSignature
	}

	var evt razorpay.WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return &ValidationError{Message: "invalid webhook payload"}
	}

	pay := evt.Payload.Payment.Entity
	order := evt.Payload.Order.Entity
	rec := ledger.EventRecord{
		EventType:  evt.Event,
		OrderID:    pay.OrderID,
		PaymentID:  pay.ID,
		Status:     pay.Status,
		Amount:     pay.Amount,
		Payload:    body,
		ReceivedAt: s.now().UTC(),
	}

	switch evt.Event {
	case "payment.captured":
		s.log.Infof("payment captured: %s for order %s (%d %s)", pay.ID, pay.OrderID, pay.Amount, pay.Currency)
	case "payment.failed":
		s.log.Warnf("payment failed: %s for order %s", pay.ID, pay.OrderID)
	case "order.paid":
		if rec.OrderID == "" {
			rec.OrderID = order.ID
		}
		rec.Status = order.Status
		s.log.Infof("order paid: %s (%d %s)", order.ID, order.AmountPaid, order.Currency)
	default:
		s.log.Infof("unhandled webhook event: %s", evt.Event)
		return nil
	}

	if err := s.ledger.RecordEvent(ctx, rec); err != nil {
		s.log.Errorf("failed to record webhook event %s: %v", evt.Event, err)
	}
	return nil
}

func (s *PaymentService) Health() *payment.HealthResponse {
	return &payment.HealthResponse{
		Status:              "ok",
		Timestamp:           timestamp.FormatISO(s.now()),
		Mode:                s.mode,
		KeyIDSet:            s.gateway.KeyIDSet(),
		RazorpayInitialized: s.gateway.Initialized(),
	}
}

func (s *PaymentService) record(ctx context.Context, rec ledger.OrderRecord) {
	if err := s.ledger.RecordOrder(ctx, rec); err != nil {
		s.log.Errorf("failed to record order %s: %v", rec.OrderID, err)
	}
}
