package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/vendorpay/vendorpay/handler"
	"github.com/vendorpay/vendorpay/infra/config"
	"github.com/vendorpay/vendorpay/infra/logger"
	"github.com/vendorpay/vendorpay/infra/middle"
	"github.com/vendorpay/vendorpay/infra/opensearch"
	"github.com/vendorpay/vendorpay/infra/response"
	"github.com/vendorpay/vendorpay/infra/validate"
	"github.com/vendorpay/vendorpay/payment"
	"github.com/vendorpay/vendorpay/provider/stripe"
	"github.com/vendorpay/vendorpay/router"
	v1 "github.com/vendorpay/vendorpay/router/v1"
	"github.com/vendorpay/vendorpay/webhook"
)

var (
	cfg              *config.AppConfig
	openSearchLogger *opensearch.Logger
)

func init() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	cfg = config.Load()

	// Initialize OpenSearch client and logger
	if cfg.EnableOpenSearch {
		osClient, err := opensearch.NewClient(cfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			openSearchLogger = opensearch.NewLogger(osClient, cfg.Environment)
			log.Println("OpenSearch logging initialized successfully")
		}
	} else {
		log.Println("OpenSearch logging is disabled")
	}

	if openSearchLogger != nil {
		logger.InitGlobalLogger(openSearchLogger)
	} else {
		logger.InitGlobalLogger(nil)
	}
}

func main() {
	if cfg.StripeSecretKey == "" {
		log.Fatal("STRIPE_SECRET_KEY is not configured")
	}
	if cfg.WebhookSecret == "" {
		log.Fatal("STRIPE_WEBHOOK_SECRET is not configured")
	}

	// Operation log, backed by SQLite
	var oplog payment.OperationLogger = payment.NopOperationLogger{}
	if cfg.EnableOperationLog {
		sqliteLog, err := payment.NewSQLiteOperationLogger(cfg.OperationLogPath)
		if err != nil {
			log.Fatalf("Failed to open operation log: %v", err)
		}
		defer sqliteLog.Close()
		oplog = sqliteLog
	}

	// Processor adapter and services
	processor, err := stripe.New(cfg.StripeSecretKey)
	if err != nil {
		log.Fatalf("Failed to initialize processor: %v", err)
	}
	store := payment.NewStore()
	paymentService := payment.NewService(processor, store, oplog)
	checkoutService := payment.NewCheckoutService(processor, store, oplog)
	verifier := webhook.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance)

	// Handlers
	validator := validate.New()
	paymentHandler := handler.NewPaymentHandler(paymentService, validator)
	customerHandler := handler.NewCustomerHandler(paymentService, validator)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, validator, cfg)
	webhookHandler := handler.NewWebhookHandler(verifier, paymentService, checkoutService)

	// Chi Define Routes
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(60 * time.Second))

	// Security Middleware
	rateLimiter := middle.NewRateLimiter(cfg.RateLimitPerMinute, cfg.WebhookRateLimitPerMinute)
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.RateLimitMiddleware(rateLimiter))
	r.Use(middle.RequestValidationMiddleware())

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300, // Preflight cache time (second)
	}))

	// Health check endpoint (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]any{
			"status":             "ok",
			"timestamp":          time.Now().UTC(),
			"version":            "1.0.0",
			"opensearch_enabled": openSearchLogger != nil,
		}
		response.Success(w, http.StatusOK, "Service is healthy", health)
	})

	// Webhook routes for processor notifications (no auth required, signed)
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookHandler.HandleWebhook)
	})

	// Checkout redirect landings (no auth required, hit by the customer's
	// browser)
	r.Get("/checkout/success", checkoutHandler.CheckoutSuccess)
	r.Get("/checkout/cancel", checkoutHandler.CheckoutCancel)

	// API routes with authentication
	router.Routes(r, cfg.APIKey, v1.Handlers{
		Payment:  paymentHandler,
		Customer: customerHandler,
		Checkout: checkoutHandler,
	})

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})

	// Create a context that listens for interrupt and terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	// Run your HTTP server in a goroutine
	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err.Error())
		}
	}()

	log.Println("API is running on", cfg.Port)

	// Block until a signal is received
	<-ctx.Done()

	log.Println("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
