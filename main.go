package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"runClubAPI/handlers"
	"runClubAPI/internal/cache"
	"runClubAPI/internal/config"
	"runClubAPI/internal/firebaseapp"
	"runClubAPI/internal/identity"
	"runClubAPI/internal/logger"
	"runClubAPI/internal/notification"
	"runClubAPI/internal/razorpay"
	"runClubAPI/internal/store"
	"runClubAPI/middleware"
	"runClubAPI/services"

	_ "net/http/pprof"
)

var (
	cfg                 *config.API
	firebaseApp         *firebase.App
	firestoreClient     *firestore.Client
	redisClient         *redis.Client
	dataStore           store.Store
	bookingCache        cache.BookingCache
	verifier            identity.Verifier
	eligibilityService  *services.EligibilityService
	bookingService      *services.BookingService
	ticketService       *services.TicketService
	userService         *services.UserService
	eventService        *services.EventService
	notificationService *services.NotificationService
	analyticsService    *services.AnalyticsService
	adminService        *services.AdminService
	doorFeed            *services.DoorFeed
	reminderDispatcher  *services.ReminderDispatcher
)

func init() {
	var err error
	cfg, err = config.LoadAPI()
	if err != nil {
		panic(err)
	}

	if _, err := logger.New(cfg.Env); err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if cfg.StoreBackend == "firestore" || cfg.AuthProvider == "firebase" {
		firebaseApp, err = firebaseapp.New(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredsB64, cfg.FirebaseCredsFile)
		if err != nil {
			zap.S().Fatalf("Failed to initialize firebase: %v", err)
		}
	}

	switch cfg.StoreBackend {
	case "firestore":
		firestoreClient, err = firebaseApp.Firestore(ctx)
		if err != nil {
			zap.S().Fatalf("Failed to create firestore client: %v", err)
		}
		dataStore = store.NewFirestoreStore(firestoreClient)
		zap.S().Info("Using firestore store")
	case "memory":
		dataStore = store.NewMemoryStore()
		zap.S().Warn("Using in-memory store, data is lost on restart")
	default:
		zap.S().Fatalf("Unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	admins := identity.NewAdminSet(cfg.AdminUIDs)
	var deleter identity.AccountDeleter
	switch cfg.AuthProvider {
	case "firebase":
		v, err := identity.NewFirebaseVerifier(ctx, firebaseApp, admins)
		if err != nil {
			zap.S().Fatalf("Failed to initialize firebase auth: %v", err)
		}
		verifier, deleter = v, v
	case "clerk":
		v, err := identity.NewClerkVerifier(cfg.ClerkSecretKey, admins)
		if err != nil {
			zap.S().Fatalf("Failed to initialize clerk: %v", err)
		}
		verifier, deleter = v, v
	default:
		zap.S().Fatalf("Unknown AUTH_PROVIDER %q", cfg.AuthProvider)
	}
	zap.S().Infof("Auth provider %s initialized successfully", cfg.AuthProvider)

	redisClient = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient != nil {
		bookingCache = cache.NewRedis(redisClient, cache.DashboardTTL)
		zap.S().Infof("Booking cache backed by redis at %s", cfg.RedisAddr)
	} else {
		bookingCache = cache.NewMemory(cache.DashboardTTL)
	}

	eligibilityService = services.NewEligibilityService(dataStore)
	bookingService = services.NewBookingService(dataStore, bookingCache, eligibilityService, cfg.RazorpaySecret())
	if gateway := razorpay.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID(), cfg.RazorpaySecret()); gateway.Initialized() {
		bookingService.SetOrderFetcher(gateway)
	} else {
		zap.S().Warn("Razorpay keys not set, paid bookings are not checked against their orders")
	}
	ticketService = services.NewTicketService(dataStore)
	userService = services.NewUserService(dataStore, bookingCache)
	userService.SetAccountDeleter(deleter)
	eventService = services.NewEventService(dataStore)
	notificationService = services.NewNotificationService(dataStore)
	analyticsService = services.NewAnalyticsService(dataStore)
	adminService = services.NewAdminService(dataStore, userService)

	doorFeed = services.NewDoorFeed()
	bookingService.SetRedemptionPublisher(doorFeed)

	if firebaseApp != nil {
		fcmService, err := notification.NewFCMService(ctx, firebaseApp)
		if err != nil {
			zap.S().Warnf("Could not initialize FCM: %v", err)
		} else {
			notificationService.SetPushProvider(fcmService)
			zap.S().Info("FCM Push Provider initialized successfully")
		}
	}

	if cfg.ReminderLead > 0 {
		reminderDispatcher = services.NewReminderDispatcher(notificationService, dataStore, cfg.ReminderLead, cfg.ReminderInterval)
		if redisClient != nil {
			reminderDispatcher.SetClaims(cache.NewRedisClaims(redisClient))
		}
	}

	middleware.InitPrometheus()
}

func main() {
	defer zap.S().Sync()
	defer func() {
		if firestoreClient != nil {
			firestoreClient.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go doorFeed.Run(ctx)
	if reminderDispatcher != nil {
		go reminderDispatcher.Run(ctx)
	}

	userHandler := handlers.NewUserHandler(userService)
	bookingHandler := handlers.NewBookingHandler(bookingService, eligibilityService, ticketService, userService)
	eventHandler := handlers.NewEventHandler(eventService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	adminHandler := handlers.NewAdminHandler(adminService, bookingService, ticketService, eventService, notificationService)
	doorFeedHandler := handlers.NewDoorFeedHandler(doorFeed, verifier)

	r := mux.NewRouter()

	r.HandleFunc("/api/v1/admin/door-feed", doorFeedHandler.Join)

	standardRouter := r.PathPrefix("/").Subrouter()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	if err := limiter.TrustProxies(cfg.TrustedProxies...); err != nil {
		zap.S().Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	go limiter.CleanupVisitors(ctx)

	standardRouter.Use(limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurity(cfg.PprofSecret)(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy", "error": "cache connection failed"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "runclub-api"}`))
	}).Methods("GET")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/events", eventHandler.GetEvents).Methods("GET")
	api.HandleFunc("/events/{id}", eventHandler.GetEvent).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(verifier))

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user", userHandler.CreateProfile).Methods("POST")
	protected.HandleFunc("/user", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/stats", userHandler.GetUserStats).Methods("GET")

	protected.HandleFunc("/bookings/eligibility", bookingHandler.GetEligibility).Methods("GET")
	protected.HandleFunc("/bookings", bookingHandler.GetBookings).Methods("GET")
	protected.HandleFunc("/bookings", bookingHandler.CreateBooking).Methods("POST")
	protected.HandleFunc("/bookings/new", bookingHandler.GetNewBooking).Methods("GET")
	protected.HandleFunc("/bookings/{id}", bookingHandler.GetBooking).Methods("GET")
	protected.HandleFunc("/bookings/{id}/ticket", bookingHandler.GetTicket).Methods("GET")
	protected.HandleFunc("/bookings/{id}/ticket.pdf", bookingHandler.GetTicketPDF).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/reminders", notificationHandler.SetReminder).Methods("POST")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// -------------------------------------------------------------------------
	// ADMIN ROUTES
	// -------------------------------------------------------------------------
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminOnly)

	admin.HandleFunc("/users", adminHandler.GetUsers).Methods("GET")
	admin.HandleFunc("/users/{id}", adminHandler.DeleteUser).Methods("DELETE")
	admin.HandleFunc("/bookings", adminHandler.GetBookings).Methods("GET")
	admin.HandleFunc("/bookings/{id}/status", adminHandler.UpdateBookingStatus).Methods("PUT")
	admin.HandleFunc("/bookings/{id}/reset", adminHandler.ResetBooking).Methods("POST")
	admin.HandleFunc("/analytics", analyticsHandler.GetAnalytics).Methods("GET")
	admin.HandleFunc("/reports/bookings", analyticsHandler.ExportBookings).Methods("GET")
	admin.HandleFunc("/events", adminHandler.GetEvents).Methods("GET")
	admin.HandleFunc("/events", adminHandler.CreateEvent).Methods("POST")
	admin.HandleFunc("/events/{id}", adminHandler.UpdateEvent).Methods("PUT")
	admin.HandleFunc("/tickets/verify", adminHandler.VerifyTicket).Methods("POST")
	admin.HandleFunc("/tickets/scan", adminHandler.ScanTicket).Methods("POST")
	admin.HandleFunc("/tickets/{id}/redeem", adminHandler.RedeemTicket).Methods("POST")
	admin.HandleFunc("/notifications/send", adminHandler.SendReminder).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(cfg.CORSOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length", "Content-Disposition"}),
		gorilllaHandlers.AllowCredentials(),
	)
	recovery := gorilllaHandlers.RecoveryHandler(gorilllaHandlers.PrintRecoveryStack(cfg.Env != "production"))

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      recovery(corsHandler(r)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zap.S().Infof("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalf("Error starting server: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	zap.S().Infof("Got signal: %v", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorf("Server shutdown error: %v", err)
	}
	stop()

	zap.S().Info("Server shutdown complete")
}
