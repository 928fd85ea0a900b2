package main

import (
	"context"                             // context package is needed for Redis operations
	"log"                                 // log package is needed for logging
	"practice_system/internal/api"        // Custom package for API handlers
	"practice_system/internal/config"     // Custom package for configuration
	"practice_system/internal/mailer"     // Transactional mail collaborator
	"practice_system/internal/middleware" // Custom package for middleware
	"practice_system/internal/reconcile"  // Roster reconciliation service
	"time"                                // time for Sentry flush

	"github.com/getsentry/sentry-go" // Error reporting
	"github.com/gin-contrib/cors"    // CORS middleware
	"github.com/gin-gonic/gin"       // Gin web framework
	"github.com/redis/go-redis/v9"   // Redis client
	"github.com/sirupsen/logrus"     // Logrus for structured logging
	stripeclient "github.com/stripe/stripe-go/v81/client" // Stripe API client
	"gorm.io/driver/mysql"                                // MySQL driver for GORM
	"gorm.io/gorm"                                        // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Error reporting, enabled only when a DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logrus.Fatalf("failed to init sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	// TranslateError lets unique-index rejections surface as gorm.ErrDuplicatedKey
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Transactional mail collaborator, injected everywhere mail is sent
	mail := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.ContactInbox)

	// Roster reconciler over the GORM-backed store
	store := reconcile.NewGormAccountStore(db)
	reconciler := reconcile.New(store, mail, cfg.ReconcileTimeout)

	// Stripe API client
	stripeAPI := &stripeclient.API{}
	stripeAPI.Init(cfg.StripeSecretKey, nil)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// CORS for the browser frontend
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin, "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))

	// Public auth routes
	auth := r.Group("/api/auth")
	auth.POST("/register", api.RegisterHandler(db))                                        // Registration endpoint
	auth.POST("/login", api.LoginHandler(db, cfg.JWTSecret))                               // Login endpoint
	auth.POST("/logout", api.LogoutHandler())                                              // Logout acknowledgement
	auth.POST("/change-password", api.ChangePasswordHandler(db))                           // Password change endpoint
	auth.PUT("/update-subscription", api.UpdateSubscriptionHandler(db, redisClient, mail)) // Subscription activation

	// Profile routes (protected by JWT)
	profile := r.Group("/api/auth")
	profile.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	profile.PUT("/update", api.UpdateHandler(reconciler, redisClient))    // Roster reconciliation endpoint
	profile.PUT("/update-profile", api.UpdateProfileHandler(db, redisClient)) // Scalar profile update
	profile.GET("/me", api.MeHandler(db, redisClient))                    // Cached profile fetch

	// Payment routes
	stripeGroup := r.Group("/api/stripe")
	stripeGroup.POST("/payments/create-payment-intent", api.CreatePaymentIntentHandler(stripeAPI)) // Payment intent endpoint
	stripeGroup.POST("/webhook", api.WebhookHandler(db, cfg.StripeWebhookKey))                     // Gateway webhook endpoint

	// Mail relay routes
	r.POST("/api/contact", api.ContactHandler(mail))       // Contact form relay
	r.POST("/api/newsletter", api.NewsletterHandler(mail)) // Newsletter signup

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/accounts", api.ListAccountsHandler(db, redisClient)) // List accounts endpoint
	adminGroup.GET("/payments", api.ListPaymentsHandler(db, redisClient)) // List payments endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
