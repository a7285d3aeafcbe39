// Command payments serves the Razorpay order endpoints used by the booking
// checkout. It keeps no booking state of its own.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"runClubAPI/handlers"
	"runClubAPI/internal/config"
	"runClubAPI/internal/ledger"
	"runClubAPI/internal/logger"
	"runClubAPI/internal/razorpay"
	"runClubAPI/middleware"
	"runClubAPI/services"
)

func main() {
	cfg, err := config.LoadPayments()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	keyID, keySecret := cfg.Credentials()
	client := razorpay.NewClient(cfg.BaseURL, keyID, keySecret)
	if !client.Initialized() {
		log.Warnf("Razorpay %s credentials are not set, gateway calls will fail", cfg.ModeName())
	}

	var l ledger.Ledger = ledger.Nop{}
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := ledger.NewPostgres(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect payment ledger: %v", err)
		}
		l = pg
		log.Info("Payment ledger connected")
	}
	defer l.Close()

	middleware.InitPrometheus()

	paymentService := services.NewPaymentService(client, l, keySecret, cfg.WebhookSecret, cfg.ModeName(), log)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	limiter := middleware.NewRateLimiter(5, 30)
	if err := limiter.TrustProxies(cfg.TrustedProxies...); err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	go limiter.CleanupVisitors(ctx)

	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/create-order", paymentHandler.CreateOrder).Methods("POST")
	api.HandleFunc("/create-qr-order", paymentHandler.CreateQROrder).Methods("POST")
	api.HandleFunc("/check-payment-status/{orderId}", paymentHandler.CheckPaymentStatus).Methods("GET")
	api.HandleFunc("/verify-payment", paymentHandler.VerifyPayment).Methods("POST")
	api.HandleFunc("/webhook", paymentHandler.Webhook).Methods("POST")
	api.HandleFunc("/health", paymentHandler.Health).Methods("GET")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(cfg.CORSOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Razorpay-Signature"}),
	)

	port := ":" + cfg.Port
	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("Payment server running on port %s (%s mode)", port, cfg.ModeName())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Infof("Got signal: %v", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
	zap.S().Info("Server shutdown complete")
}
