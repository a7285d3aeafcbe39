package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPaymentsSelectsKeysByMode(t *testing.T) {
	t.Setenv("RAZORPAY_TEST_KEY_ID", "rzp_test_1")
	t.Setenv("RAZORPAY_TEST_KEY_SECRET", "test-secret")
	t.Setenv("RAZORPAY_LIVE_KEY_ID", "rzp_live_1")
	t.Setenv("RAZORPAY_LIVE_KEY_SECRET", "live-secret")

	t.Run("test mode by default", func(t *testing.T) {
		t.Setenv("RAZORPAY_MODE", "")
		cfg, err := LoadPayments()
		require.NoError(t, err)

		id, secret := cfg.Credentials()
		assert.Equal(t, "rzp_test_1", id)
		assert.Equal(t, "test-secret", secret)
		assert.Equal(t, "test", cfg.ModeName())
	})

	t.Run("live mode", func(t *testing.T) {
		t.Setenv("RAZORPAY_MODE", "LIVE")
		cfg, err := LoadPayments()
		require.NoError(t, err)

		id, secret := cfg.Credentials()
		assert.Equal(t, "rzp_live_1", id)
		assert.Equal(t, "live-secret", secret)
		assert.Equal(t, "live", cfg.ModeName())
	})
}

func TestLoadAPIDefaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ADMIN_UIDS", "uid-a,uid-b")

	cfg, err := LoadAPI()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "firestore", cfg.StoreBackend)
	assert.Equal(t, "firebase", cfg.AuthProvider)
	assert.Equal(t, []string{"uid-a", "uid-b"}, cfg.AdminUIDs)
	assert.Equal(t, 24*time.Hour, cfg.ReminderLead)
}
