package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// API holds the club API configuration.
type API struct {
	Env  string `envconfig:"APP_ENV" default:"development"`
	Port string `envconfig:"PORT" default:"3333"`

	// STORE_BACKEND selects firestore (default) or memory for local runs.
	StoreBackend      string   `envconfig:"STORE_BACKEND" default:"firestore"`
	FirebaseProjectID string   `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseCredsB64  string   `envconfig:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseCredsFile string   `envconfig:"FIREBASE_SERVICE_ACCOUNT_FILE" default:"./serviceAccountKey.json"`
	AuthProvider      string   `envconfig:"AUTH_PROVIDER" default:"firebase"`
	ClerkSecretKey    string   `envconfig:"CLERK_SECRET_KEY"`
	AdminUIDs         []string `envconfig:"ADMIN_UIDS"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Used to re-check Razorpay signatures and orders on paid bookings.
	RazorpayMode       string `envconfig:"RAZORPAY_MODE" default:"test"`
	RazorpayTestKeyID  string `envconfig:"RAZORPAY_TEST_KEY_ID"`
	RazorpayTestSecret string `envconfig:"RAZORPAY_TEST_KEY_SECRET"`
	RazorpayLiveKeyID  string `envconfig:"RAZORPAY_LIVE_KEY_ID"`
	RazorpayLiveSecret string `envconfig:"RAZORPAY_LIVE_KEY_SECRET"`
	RazorpayBaseURL    string `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`

	// Automatic attendee reminders; a zero lead disables them.
	ReminderLead     time.Duration `envconfig:"REMINDER_LEAD" default:"24h"`
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"15m"`

	MetricsUser string `envconfig:"METRICS_USER"`
	MetricsPass string `envconfig:"METRICS_PASS"`
	PprofSecret string `envconfig:"PPROF_SECRET"`

	RateLimitPerSecond float64 `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
	RateLimitBurst     int     `envconfig:"RATE_LIMIT_BURST" default:"30"`
	// Proxies whose X-Forwarded-For is believed, as CIDRs or addresses.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// RazorpaySecret returns the key secret for the configured mode.
func (c API) RazorpaySecret() string {
	if isLive(c.RazorpayMode) {
		return c.RazorpayLiveSecret
	}
	return c.RazorpayTestSecret
}

// RazorpayKeyID returns the key ID for the configured mode.
func (c API) RazorpayKeyID() string {
	if isLive(c.RazorpayMode) {
		return c.RazorpayLiveKeyID
	}
	return c.RazorpayTestKeyID
}

// Payments holds the payment order service configuration.
type Payments struct {
	Env  string `envconfig:"APP_ENV" default:"development"`
	Port string `envconfig:"PORT" default:"5000"`

	Mode          string `envconfig:"RAZORPAY_MODE" default:"test"`
	TestKeyID     string `envconfig:"RAZORPAY_TEST_KEY_ID"`
	TestKeySecret string `envconfig:"RAZORPAY_TEST_KEY_SECRET"`
	LiveKeyID     string `envconfig:"RAZORPAY_LIVE_KEY_ID"`
	LiveKeySecret string `envconfig:"RAZORPAY_LIVE_KEY_SECRET"`
	WebhookSecret string `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Credentials returns the key pair selected by Mode.
func (c Payments) Credentials() (keyID, keySecret string) {
	if isLive(c.Mode) {
		return c.LiveKeyID, c.LiveKeySecret
	}
	return c.TestKeyID, c.TestKeySecret
}

// ModeName is "live" or "test".
func (c Payments) ModeName() string {
	if isLive(c.Mode) {
		return "live"
	}
	return "test"
}

func isLive(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), "live")
}

// LoadAPI reads .env (if present) and the environment.
func LoadAPI() (*API, error) {
	_ = godotenv.Load()

	var cfg API
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load api config: %w", err)
	}
	return &cfg, nil
}

// LoadPayments reads .env (if present) and the environment.
func LoadPayments() (*Payments, error) {
	_ = godotenv.Load()

	var cfg Payments
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load payments config: %w", err)
	}
	return &cfg, nil
}
