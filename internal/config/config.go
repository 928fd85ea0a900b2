package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For duration parsing

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort          string        // Application port
	DBUser           string        // Database user
	DBPassword       string        // Database password
	DBHost           string        // Database host
	DBPort           string        // Database port
	DBName           string        // Database name
	JWTSecret        string        // JWT secret key
	RedisAddr        string        // Redis server address
	RedisPass        string        // Redis password
	RedisDB          int           // Redis database number
	SMTPHost         string        // SMTP server host
	SMTPPort         int           // SMTP server port
	SMTPUser         string        // SMTP account (sender address)
	SMTPPassword     string        // SMTP password
	ContactInbox     string        // Inbox receiving contact-form mail
	StripeSecretKey  string        // Stripe API secret key
	StripeWebhookKey string        // Stripe webhook signing secret
	SentryDSN        string        // Sentry DSN (optional)
	CORSOrigin       string        // Allowed browser origin
	ReconcileTimeout time.Duration // Upper bound on one roster reconcile
	IsProd           bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	smtpPort, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if smtpPort == 0 {
		smtpPort = 587 // STARTTLS submission port
	}
	reconcileTimeout, err := time.ParseDuration(os.Getenv("RECONCILE_TIMEOUT"))
	if err != nil || reconcileTimeout <= 0 {
		reconcileTimeout = 15 * time.Second
	}
	return &Config{
		AppPort:          os.Getenv("APP_PORT"),              // Application port
		DBUser:           os.Getenv("DB_USER"),               // Database user
		DBPassword:       os.Getenv("DB_PASSWORD"),           // Database password
		DBHost:           os.Getenv("DB_HOST"),               // Database host
		DBPort:           os.Getenv("DB_PORT"),               // Database port
		DBName:           os.Getenv("DB_NAME"),               // Database name
		JWTSecret:        os.Getenv("JWT_SECRET"),            // JWT secret key
		RedisAddr:        os.Getenv("REDIS_ADDR"),            // Redis server address
		RedisPass:        os.Getenv("REDIS_PASS"),            // Redis password
		RedisDB:          redisDB,                            // Redis database number
		SMTPHost:         os.Getenv("SMTP_HOST"),             // SMTP server host
		SMTPPort:         smtpPort,                           // SMTP server port
		SMTPUser:         os.Getenv("SMTP_USER"),             // SMTP account
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),         // SMTP password
		ContactInbox:     os.Getenv("CONTACT_INBOX"),         // Contact-form inbox
		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),     // Stripe API secret key
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"), // Stripe webhook signing secret
		SentryDSN:        os.Getenv("SENTRY_DSN"),            // Sentry DSN
		CORSOrigin:       os.Getenv("CORS_ORIGIN"),           // Allowed browser origin
		ReconcileTimeout: reconcileTimeout,                   // Reconcile deadline
		IsProd:           os.Getenv("IS_PROD") == "true",     // Is production environment
	}
}
