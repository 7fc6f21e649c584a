package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	UpstreamTimeout time.Duration

	// Base URL of the food-ordering REST backend (cart, orders, payments, reviews).
	BackendURL string

	// CORS
	CORSAllowOrigins []string

	// Empty secret: token claims are read without signature verification.
	JWTSecret  string
	SignInPath string

	// Empty DSN keeps the payment attempt ledger in memory.
	DatabaseDSN   string
	RunMigrations bool

	// Empty URL logs payment events instead of publishing them.
	RabbitMQURL string

	Gateway         string
	StripeAPIURL    string
	StripeSecretKey string

	LogLevel  string
	LogFormat string
}

const (
	GatewayStripe = "stripe"
	GatewayFake   = "fake"
)

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getenv("PORT", "8080"),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),

		BackendURL: strings.TrimRight(getenv("BACKEND_URL", "http://localhost:8090/api/v1"), "/") + "/",

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		SignInPath: getenv("SIGN_IN_PATH", "/login"),

		DatabaseDSN:   os.Getenv("DATABASE_URL"),
		RunMigrations: envBool("RUN_MIGRATIONS", true),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		Gateway:         strings.ToLower(getenv("GATEWAY", GatewayFake)),
		StripeAPIURL:    getenv("STRIPE_API_URL", "https://api.stripe.com"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
