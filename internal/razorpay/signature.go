package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/razorpay/razorpay-go/utils"
)

// Sign returns the hex HMAC-SHA256 of message under secret, the form
// Razorpay signs checkout callbacks and webhooks with.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the checkout callback signature over
// "order_id|payment_id".
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  signature,
	}, signature, secret)
}

// VerifyWebhookSignature checks the x-razorpay-signature header over the raw body.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, secret)
}
