// Package razorpay wraps the Razorpay SDK for the orders and payment links
// APIs behind a context-aware client with a circuit breaker.
package razorpay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-cleanhttp"
	rzp "github.com/razorpay/razorpay-go"
	circuit "github.com/rubyist/circuitbreaker"
)

const DefaultBaseURL = "https://api.razorpay.com"

const (
	requestTimeout = 15 * time.Second
	// consecutive transport or 5xx failures before calls fail fast
	breakerThreshold = 5
)

var ErrNotConfigured = errors.New("razorpay credentials not configured")

// Error is a non-2xx response from the gateway.
type Error struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("razorpay: %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("razorpay: status %d", e.StatusCode)
}

// IsAuthError reports whether err is a gateway authentication failure.
func IsAuthError(err error) bool {
	var rpErr *Error
	return errors.As(err, &rpErr) && rpErr.StatusCode == http.StatusUnauthorized
}

// IsUnavailable reports whether the call was refused because the gateway
// breaker is open.
func IsUnavailable(err error) bool {
	return errors.Is(err, circuit.ErrBreakerOpen)
}

// IsNotFound reports whether err means the requested entity does not exist.
// Razorpay answers unknown IDs with 400 "does not exist" as well as 404.
func IsNotFound(err error) bool {
	var rpErr *Error
	if !errors.As(err, &rpErr) {
		return false
	}
	return rpErr.StatusCode == http.StatusNotFound ||
		(rpErr.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(rpErr.Description), "does not exist"))
}

type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	transport http.RoundTripper
	breaker   *circuit.Breaker
}

func NewClient(baseURL, keyID, keySecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		transport: cleanhttp.DefaultPooledTransport(),
		breaker:   circuit.NewConsecutiveBreaker(breakerThreshold),
	}
}

// Initialized reports whether both key ID and secret are present.
func (c *Client) Initialized() bool {
	return c.keyID != "" && c.keySecret != ""
}

func (c *Client) KeyIDSet() bool {
	return c.keyID != ""
}

// callTransport carries one SDK call: it binds the caller's context, gates
// the request on the breaker and keeps the gateway's error envelope, which
// the SDK reduces to a message.
type callTransport struct {
	ctx     context.Context
	base    http.RoundTripper
	breaker *circuit.Breaker

	apiErr *Error
	err    error
}

func (t *callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.breaker.Ready() {
		t.err = circuit.ErrBreakerOpen
		return nil, t.err
	}

	resp, err := t.base.RoundTrip(req.WithContext(t.ctx))
	if err != nil {
		t.breaker.Fail()
		t.err = err
		return nil, err
	}
	if resp.StatusCode >= 500 {
		t.breaker.Fail()
	} else {
		t.breaker.Success()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(raw))

		var envelope struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		t.apiErr = &Error{
			StatusCode:  resp.StatusCode,
			Code:        envelope.Error.Code,
			Description: envelope.Error.Description,
		}
	}
	return resp, nil
}

// call runs fn against an SDK client bound to ctx and decodes the returned
// entity into out.
func (c *Client) call(ctx context.Context, out any, fn func(sdk *rzp.Client) (map[string]interface{}, error)) error {
	if !c.Initialized() {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	t := &callTransport{ctx: ctx, base: c.transport, breaker: c.breaker}
	sdk := rzp.NewClient(c.keyID, c.keySecret)
	sdk.Request.BaseURL = c.baseURL
	sdk.Request.HTTPClient = &http.Client{Transport: t, Timeout: requestTimeout}

	body, err := fn(sdk)
	switch {
	case t.err != nil:
		return fmt.Errorf("razorpay request failed: %w", t.err)
	case t.apiErr != nil:
		return t.apiErr
	case err != nil:
		return fmt.Errorf("razorpay call failed: %w", err)
	}

	if out == nil {
		return nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to read razorpay response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode razorpay response: %w", err)
	}
	return nil
}

// toData converts a request struct into the map form the SDK posts.
func toData(req any) (map[string]interface{}, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	data := map[string]interface{}{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return data, nil
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	data, err := toData(req)
	if err != nil {
		return nil, err
	}
	var order Order
	err = c.call(ctx, &order, func(sdk *rzp.Client) (map[string]interface{}, error) {
		return sdk.Order.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	err := c.call(ctx, &order, func(sdk *rzp.Client) (map[string]interface{}, error) {
		return sdk.Order.Fetch(orderID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) OrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	var coll struct {
		Count int       `json:"count"`
		Items []Payment `json:"items"`
	}
	err := c.call(ctx, &coll, func(sdk *rzp.Client) (map[string]interface{}, error) {
		return sdk.Order.Payments(orderID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return coll.Items, nil
}

func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	data, err := toData(req)
	if err != nil {
		return nil, err
	}
	var link PaymentLink
	err = c.call(ctx, &link, func(sdk *rzp.Client) (map[string]interface{}, error) {
		return sdk.PaymentLink.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) FetchPaymentLink(ctx context.Context, id string) (*PaymentLink, error) {
	var link PaymentLink
	err := c.call(ctx, &link, func(sdk *rzp.Client) (map[string]interface{}, error) {
		return sdk.PaymentLink.Fetch(id, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}
