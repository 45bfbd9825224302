package util

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config struct.
// All values are static: they are read once at startup from .env (if present) and the process environment,
// so the server must restart to pick up a change.
type Config struct {
	ServerAddr  string // Address the HTTP server listens on
	Environment string // development or production. Debug detail in error responses is only sent outside production
	Storage     string // postgres (default) or memory, the latter for local runs without a database
	DbConn      string // Postgres connection string
	RedisAddr   string // Redis address for cache, locks and background workers

	SecretKey              string        // JWT signing key
	TokenExpiration        time.Duration // Access token lifetime
	RefreshTokenExpiration time.Duration // Refresh token lifetime

	Timezone string // IANA zone used when comparing calendar dates of events

	PaymentGateway    string // razorpay or stripe
	RazorpayKeyID     string // Razorpay key ID, also returned to the checkout page
	RazorpayKeySecret string // Razorpay key secret, used for orders, refunds and signature checks
	StripeSecretKey   string // Stripe secret key
	Currency          string // ISO currency code of every order

	CloudStorageName   string // Cloudinary cloud name
	CloudStorageKey    string // Cloudinary API key
	CloudStorageSecret string // Cloudinary secret key

	Email       string // Platform email
	AppPassword string // Platform email's app password

	AblyAPIKey string // Ably key for the live check-in feed. Empty disables it

	MaxWorkers           int    // The total of background workers running in the background
	MaxTicketsPerBooking int    // Upper bound of tickets a single booking may create
	ExpirySweepCron      string // Cron spec of the periodic ticket expiry sweep
}

// Constructor method for Config struct
func NewConfig() *Config {
	return &Config{}
}

// Load config from .env, then from the environment. A missing .env file is not an error,
// since containers usually pass everything as environment variables.
func LoadConfig(path string) *Config {
	if err := godotenv.Load(path); err != nil {
		LOGGER.Warn("no .env file loaded, using process environment", "path", path, "error", err)
	}

	config := NewConfig()
	config.ServerAddr = getEnv("SERVER_ADDR", ":8080")
	config.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))
	config.Storage = strings.ToLower(getEnv("STORAGE", "postgres"))
	config.DbConn = os.Getenv("DB_CONN")
	config.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")

	config.SecretKey = os.Getenv("SECRET_KEY")
	config.TokenExpiration = getEnvAsDuration("TOKEN_EXPIRATION", time.Hour)
	config.RefreshTokenExpiration = getEnvAsDuration("REFRESH_TOKEN_EXPIRATION", 24*time.Hour)

	config.Timezone = getEnv("TIMEZONE", "Asia/Kolkata")

	config.PaymentGateway = strings.ToLower(getEnv("PAYMENT_GATEWAY", "razorpay"))
	config.RazorpayKeyID = os.Getenv("RAZORPAY_KEY_ID")
	config.RazorpayKeySecret = os.Getenv("RAZORPAY_KEY_SECRET")
	config.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	config.Currency = strings.ToUpper(getEnv("CURRENCY", "INR"))

	config.CloudStorageName = os.Getenv("CLOUDINARY_NAME")
	config.CloudStorageKey = os.Getenv("CLOUDINARY_APIKEY")
	config.CloudStorageSecret = os.Getenv("CLOUDINARY_APISECRET")

	config.Email = os.Getenv("EMAIL")
	config.AppPassword = os.Getenv("APP_PASSWORD")

	config.AblyAPIKey = os.Getenv("ABLY_API_KEY")

	config.MaxWorkers = getEnvAsInt("MAX_WORKERS", 10)
	config.MaxTicketsPerBooking = getEnvAsInt("MAX_TICKETS_PER_BOOKING", 250)
	config.ExpirySweepCron = getEnv("EXPIRY_SWEEP_CRON", "*/15 * * * *")

	return config
}

// Whether the server runs in production. Error responses carry no debug payload in production
func (config *Config) IsProduction() bool {
	return config.Environment == "production"
}

// Location used for calendar date comparison. Falls back to UTC if the zone name is unknown
func (config *Config) Location() *time.Location {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		LOGGER.Warn("unknown timezone, falling back to UTC", "timezone", config.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return duration
	}
	return defaultValue
}
