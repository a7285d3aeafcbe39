package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/cache"
	"runClubAPI/internal/identity"
	"runClubAPI/internal/store"
	"runClubAPI/internal/ticket"
	"runClubAPI/internal/types/booking"
	"runClubAPI/internal/types/event"
	"runClubAPI/internal/types/user"
	"runClubAPI/middleware"
	"runClubAPI/services"
)

const runnerPhone = "+919876543210"

var (
	runner = &identity.Identity{UID: "u1", PhoneNumber: runnerPhone}
	admin  = &identity.Identity{UID: "a1", Admin: true}
)

type handlerEnv struct {
	store    *store.MemoryStore
	eventID  string
	bookings *BookingHandler
	users    *UserHandler
	events   *EventHandler
	notifs   *NotificationHandler
	admin    *AdminHandler
	reports  *AnalyticsHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStore()
	c := cache.NewMemory(cache.DashboardTTL)

	require.NoError(t, st.CreateUser(ctx, &user.User{ID: "u1", Name: "Asha", PhoneNumber: runnerPhone}))
	eventID, err := st.SaveEvent(ctx, &event.Event{
		Name: "Weekly run", Date: time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC), Time: "06:00 AM",
		Location: "Cubbon Park", Price: 19900, Active: true,
	})
	require.NoError(t, err)

	eligibility := services.NewEligibilityService(st)
	bookingService := services.NewBookingService(st, c, eligibility, "")
	ticketService := services.NewTicketService(st)
	userService := services.NewUserService(st, c)
	eventService := services.NewEventService(st)
	notificationService := services.NewNotificationService(st)

	return &handlerEnv{
		store:    st,
		eventID:  eventID,
		bookings: NewBookingHandler(bookingService, eligibility, ticketService, userService),
		users:    NewUserHandler(userService),
		events:   NewEventHandler(eventService),
		notifs:   NewNotificationHandler(notificationService),
		admin: NewAdminHandler(services.NewAdminService(st, userService), bookingService, ticketService,
			eventService, notificationService),
		reports: NewAnalyticsHandler(services.NewAnalyticsService(st)),
	}
}

// serve routes a single request through a router holding one pattern.
func serve(t *testing.T, h http.HandlerFunc, method, pattern, target string, body io.Reader, id *identity.Identity) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc(pattern, h).Methods(method)

	req := httptest.NewRequest(method, target, body)
	if id != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), id))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *handlerEnv) bookTrial(t *testing.T) *booking.Booking {
	t.Helper()
	rec := serve(t, e.bookings.CreateBooking, http.MethodPost, "/bookings", "/bookings",
		jsonBody(t, map[string]any{"eventId": e.eventID, "isFreeTrial": true}), runner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[booking.Booking](t, rec)
	return &b
}

func TestFreeTrialBookingFlow(t *testing.T) {
	env := newHandlerEnv(t)

	rec := serve(t, env.bookings.GetEligibility, http.MethodGet, "/bookings/eligibility", "/bookings/eligibility", nil, runner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"eligible":true,"result":"eligible"}`, rec.Body.String())

	b := env.bookTrial(t)
	assert.Equal(t, int64(0), b.Amount)
	assert.Equal(t, booking.StatusConfirmed, b.Status)
	assert.True(t, b.IsFreeTrial)

	rec = serve(t, env.bookings.GetEligibility, http.MethodGet, "/bookings/eligibility", "/bookings/eligibility", nil, runner)
	assert.JSONEq(t, `{"eligible":false,"result":"ineligible"}`, rec.Body.String())

	rec = serve(t, env.bookings.CreateBooking, http.MethodPost, "/bookings", "/bookings",
		jsonBody(t, map[string]any{"eventId": env.eventID, "isFreeTrial": true}), runner)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"not eligible for a free trial"}`, rec.Body.String())

	rec = serve(t, env.bookings.GetNewBooking, http.MethodGet, "/bookings/new", "/bookings/new", nil, runner)
	resp := decode[struct {
		NewBooking bool             `json:"newBooking"`
		Booking    *booking.Booking `json:"booking"`
	}](t, rec)
	assert.True(t, resp.NewBooking)
	require.NotNil(t, resp.Booking)
	assert.Equal(t, b.ID, resp.Booking.ID)

	rec = serve(t, env.bookings.GetBookings, http.MethodGet, "/bookings", "/bookings", nil, runner)
	dash := decode[booking.DashboardResponse](t, rec)
	require.Len(t, dash.Bookings, 1)
}

func TestCreateBookingValidation(t *testing.T) {
	env := newHandlerEnv(t)

	rec := serve(t, env.bookings.CreateBooking, http.MethodPost, "/bookings", "/bookings",
		jsonBody(t, map[string]any{"eventId": env.eventID}), runner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "orderId is required")

	rec = serve(t, env.bookings.CreateBooking, http.MethodPost, "/bookings", "/bookings",
		bytes.NewReader([]byte(`{`)), runner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, env.bookings.CreateBooking, http.MethodPost, "/bookings", "/bookings",
		jsonBody(t, map[string]any{"eventId": env.eventID, "isFreeTrial": true}), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaidBookingPaymentReplay(t *testing.T) {
	env := newHandlerEnv(t)
	body := map[string]any{"eventId": env.eventID, "orderId": "order_1", "paymentId": "pay_1", "signature": "sig"}

	rec := serve(t, env.bookings.CreateBooking, http.MethodPost, "/bookings", "/bookings", jsonBody(t, body), runner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(t, env.bookings.CreateBooking, http.MethodPost, "/bookings", "/bookings", jsonBody(t, body), runner)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"payment already used for a booking"}`, rec.Body.String())
}

func TestTicketEndpoints(t *testing.T) {
	env := newHandlerEnv(t)
	b := env.bookTrial(t)

	rec := serve(t, env.bookings.GetTicket, http.MethodGet, "/bookings/{id}/ticket", "/bookings/"+b.ID+"/ticket", nil, runner)
	require.Equal(t, http.StatusOK, rec.Code)
	tr := decode[services.TicketResponse](t, rec)
	assert.Equal(t, b.ID, tr.Ticket.ID)
	assert.Equal(t, ticket.TypeFreeTrial, tr.Ticket.TicketType)

	rec = serve(t, env.bookings.GetTicket, http.MethodGet, "/bookings/{id}/ticket", "/bookings/"+b.ID+"/ticket", nil,
		&identity.Identity{UID: "someone-else"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, env.bookings.GetTicketPDF, http.MethodGet, "/bookings/{id}/ticket.pdf", "/bookings/"+b.ID+"/ticket.pdf", nil, runner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestAdminVerifyAndRedeem(t *testing.T) {
	env := newHandlerEnv(t)
	b := env.bookTrial(t)

	rec := serve(t, env.admin.VerifyTicket, http.MethodPost, "/admin/tickets/verify", "/admin/tickets/verify",
		jsonBody(t, map[string]string{"text": `{"id":"` + b.ID + `","event":"Stale name"}`}), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	vr := decode[services.VerifyResult](t, rec)
	assert.Equal(t, services.SourceStore, vr.Source)
	assert.Equal(t, "Weekly run", vr.Ticket.Event)

	rec = serve(t, env.admin.RedeemTicket, http.MethodPost, "/admin/tickets/{id}/redeem", "/admin/tickets/"+b.ID+"/redeem", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	redeemed := decode[booking.Booking](t, rec)
	assert.Equal(t, booking.StatusUsed, redeemed.Status)
	assert.Equal(t, "a1", redeemed.UsedBy)

	rec = serve(t, env.admin.RedeemTicket, http.MethodPost, "/admin/tickets/{id}/redeem", "/admin/tickets/"+b.ID+"/redeem", nil,
		&identity.Identity{UID: "a2", Admin: true})
	require.Equal(t, http.StatusConflict, rec.Code)
	dup := decode[booking.AlreadyUsedResponse](t, rec)
	assert.True(t, dup.AlreadyUsed)
	assert.Equal(t, "ticket already used", dup.Error)
	assert.Equal(t, "a1", dup.UsedBy)
	require.NotNil(t, dup.UsedAt)
	assert.True(t, dup.UsedAt.Equal(*redeemed.UsedAt))

	rec = serve(t, env.admin.ResetBooking, http.MethodPost, "/admin/bookings/{id}/reset", "/admin/bookings/"+b.ID+"/reset", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StatusPending, decode[booking.Booking](t, rec).Status)

	rec = serve(t, env.admin.UpdateBookingStatus, http.MethodPut, "/admin/bookings/{id}/status", "/admin/bookings/"+b.ID+"/status",
		jsonBody(t, map[string]string{"status": "lost"}), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminScanTicket(t *testing.T) {
	env := newHandlerEnv(t)

	upload := func(content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("image", "ticket.png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		r := mux.NewRouter()
		r.HandleFunc("/admin/tickets/scan", env.admin.ScanTicket).Methods(http.MethodPost)
		req := httptest.NewRequest(http.MethodPost, "/admin/tickets/scan", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := upload([]byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	png, err := ticket.TextPNG(`{"id":"abc123","event":"Weekly run"}`, 512)
	require.NoError(t, err)

	rec = upload(png)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	vr := decode[services.VerifyResult](t, rec)
	assert.Equal(t, services.SourceScan, vr.Source)
	assert.Equal(t, "abc123", vr.Ticket.ID)
}

func TestAdminEventsAndReports(t *testing.T) {
	env := newHandlerEnv(t)
	env.bookTrial(t)

	rec := serve(t, env.admin.CreateEvent, http.MethodPost, "/admin/events", "/admin/events",
		jsonBody(t, map[string]any{"name": "Trail run", "date": "2025-05-01", "time": "06:00 AM", "location": "Nandi Hills", "price": 49900}), admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[event.Event](t, rec)
	assert.True(t, created.Active)

	rec = serve(t, env.admin.CreateEvent, http.MethodPost, "/admin/events", "/admin/events",
		jsonBody(t, map[string]any{"name": "No date"}), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, env.events.GetEvents, http.MethodGet, "/events", "/events", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]event.Event](t, rec), 2)

	rec = serve(t, env.reports.ExportBookings, http.MethodGet, "/admin/reports/bookings", "/admin/reports/bookings?format=csv", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Weekly run")

	rec = serve(t, env.reports.ExportBookings, http.MethodGet, "/admin/reports/bookings", "/admin/reports/bookings?format=xml", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, env.admin.GetBookings, http.MethodGet, "/admin/bookings", "/admin/bookings?status=nope", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, env.reports.GetAnalytics, http.MethodGet, "/admin/analytics", "/admin/analytics", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"freeTrials":1`)
}

func TestProfileLifecycle(t *testing.T) {
	env := newHandlerEnv(t)
	newcomer := &identity.Identity{UID: "u7", PhoneNumber: "+917000000000"}

	rec := serve(t, env.users.CreateProfile, http.MethodPost, "/user", "/user",
		jsonBody(t, map[string]any{"name": "Kiran", "gender": "other", "joinCrew": true}), newcomer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "+917000000000", decode[user.User](t, rec).PhoneNumber)

	rec = serve(t, env.users.CreateProfile, http.MethodPost, "/user", "/user",
		jsonBody(t, map[string]any{"name": "Kiran"}), newcomer)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, env.users.CreateProfile, http.MethodPost, "/user", "/user",
		jsonBody(t, map[string]any{"name": "K", "gender": "unknown"}), &identity.Identity{UID: "u8"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, env.users.DeleteAccount, http.MethodDelete, "/user", "/user", nil, newcomer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, env.users.GetProfile, http.MethodGet, "/user", "/user", nil, newcomer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	env := newHandlerEnv(t)

	rec := serve(t, env.notifs.SetReminder, http.MethodPost, "/notifications/reminders", "/notifications/reminders",
		jsonBody(t, map[string]string{"eventId": env.eventID}), runner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(t, env.notifs.GetUnreadCount, http.MethodGet, "/notifications/unread-count", "/notifications/unread-count", nil, runner)
	assert.JSONEq(t, `{"unreadCount":1}`, rec.Body.String())

	rec = serve(t, env.notifs.MarkAsRead, http.MethodPut, "/notifications/{id}/read", "/notifications/missing/read", nil, runner)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, env.notifs.RegisterDevice, http.MethodPost, "/notifications/register-device", "/notifications/register-device",
		jsonBody(t, map[string]string{}), runner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
