package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/identity"
)

var testVerifier = identity.Static{Tokens: map[string]identity.Identity{
	"runner": {UID: "u1", PhoneNumber: "+919876543210"},
	"admin":  {UID: "a1", Admin: true},
}}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentity(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(id.UID))
}

func TestAuth(t *testing.T) {
	h := Auth(testVerifier)(http.HandlerFunc(whoAmI))

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, `{"error": "Authorization header required"}`},
		{"no bearer prefix", "runner", http.StatusUnauthorized, `{"error": "Invalid authorization format. Use 'Bearer <token>'"}`},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, `{"error": "Invalid token"}`},
		{"valid token", "Bearer runner", http.StatusOK, "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestAdminOnly(t *testing.T) {
	h := Auth(testVerifier)(AdminOnly(http.HandlerFunc(whoAmI)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer runner")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// rotating X-Forwarded-For from an untrusted peer does not buy new buckets
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:4444"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterClientIP(t *testing.T) {
	l := NewRateLimiter(1, 1)
	require.NoError(t, l.TrustProxies("10.0.0.0/8", " 192.0.2.1 "))
	assert.Error(t, NewRateLimiter(1, 1).TrustProxies("not-an-ip"))

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{name: "untrusted peer ignores header", remote: "198.51.100.9:1234", xff: "203.0.113.7", want: "198.51.100.9"},
		{name: "trusted peer without header", remote: "10.1.2.3:1234", want: "10.1.2.3"},
		{name: "trusted peer", remote: "10.1.2.3:1234", xff: "203.0.113.7", want: "203.0.113.7"},
		{name: "spoofed left entries skipped", remote: "192.0.2.1:1234", xff: "1.1.1.1, 203.0.113.7, 10.0.0.5", want: "203.0.113.7"},
		{name: "all hops trusted", remote: "10.1.2.3:1234", xff: "10.0.0.7, 10.0.0.5", want: "10.0.0.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, l.clientIP(req))
		})
	}
}

func TestBasicAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	h := BasicAuth("prom", "secret")(ok)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.SetBasicAuth("prom", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	disabled := BasicAuth("", "")(ok)
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("", "")
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMonitorMiddlewareUsesRouteTemplate(t *testing.T) {
	InitPrometheus()
	InitPrometheus()

	r := mux.NewRouter()
	r.Use(MonitorMiddleware)
	r.HandleFunc("/bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/{id}", routeLabel(r))
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}
