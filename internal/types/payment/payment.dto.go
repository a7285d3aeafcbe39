package payment

type CreateOrderRequest struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	EventID   string `json:"eventId"`
	UserID    string `json:"userId"`
	EventName string `json:"eventName"`
}

type Customer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type CreateQROrderRequest struct {
	CreateOrderRequest
	CustomerName    string    `json:"customerName,omitempty"`
	CustomerEmail   string    `json:"customerEmail,omitempty"`
	CustomerContact string    `json:"customerContact,omitempty"`
	Customer        *Customer `json:"customer,omitempty"`
}

type OrderResponse struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

type QROrderResponse struct {
	ID       string `json:"id"`
	QRCode   string `json:"qrCode"`
	ShortURL string `json:"shortUrl"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

const (
	StatusPaid    = "paid"
	StatusPending = "pending"
)

type StatusResponse struct {
	Status    string `json:"status"`
	PaymentID string `json:"paymentId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status              string `json:"status"`
	Timestamp           string `json:"timestamp"`
	Mode                string `json:"mode"`
	KeyIDSet            bool   `json:"keyIdSet"`
	RazorpayInitialized bool   `json:"razorpayInitialized"`
}
