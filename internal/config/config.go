package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv          string
	AppPort         string
	DBDSN           string
	JWTSecret       string
	JWTExpiresMin   int
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	AllowOrigins    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RoleSwitchCooldown time.Duration
	OTPTTL             time.Duration

	Gateway GatewayConfig
	SMTP    SMTPConfig

	// cron spec for the pending-payment reconciliation worker; empty disables it
	ReconcileSchedule string
	ReconcileMinAge   time.Duration
}

type GatewayConfig struct {
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	CallbackSecret string
	Timeout        time.Duration
}

// SMTPConfig is the relay used for verification emails. An empty host means
// codes are only written to the server log.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	redisDB, _ := strconv.Atoi(get("REDIS_DB", "0"))
	smtpPort, _ := strconv.Atoi(get("SMTP_PORT", "587"))
	baseURL := get("APP_BASE_URL", "http://localhost:8080")

	gatewayBase := get("GATEWAY_BASE_URL", "https://sandbox.safaricom.co.ke")
	return Config{
		AppEnv:          get("APP_ENV", "development"),
		AppPort:         get("APP_PORT", "8080"),
		DBDSN:           must("DB_DSN"),
		JWTSecret:       must("JWT_SECRET"),
		JWTExpiresMin:   expires,
		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
		AllowOrigins:    get("CORS_ALLOW_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),

		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		RoleSwitchCooldown: duration("ROLE_SWITCH_COOLDOWN", time.Minute),
		OTPTTL:             duration("OTP_TTL", 10*time.Minute),

		Gateway: GatewayConfig{
			BaseURL:        gatewayBase,
			TokenURL:       get("GATEWAY_TOKEN_URL", gatewayBase+"/oauth/v1/generate"),
			ClientID:       get("GATEWAY_CLIENT_ID", ""),
			ClientSecret:   get("GATEWAY_CLIENT_SECRET", ""),
			ShortCode:      get("GATEWAY_SHORTCODE", "174379"),
			Passkey:        get("GATEWAY_PASSKEY", ""),
			CallbackURL:    get("GATEWAY_CALLBACK_URL", baseURL+"/api/payments/callback"),
			CallbackSecret: get("GATEWAY_CALLBACK_SECRET", ""),
			Timeout:        duration("GATEWAY_TIMEOUT", 15*time.Second),
		},

		SMTP: SMTPConfig{
			Host:        get("SMTP_HOST", ""),
			Port:        smtpPort,
			Username:    get("SMTP_USERNAME", ""),
			Password:    get("SMTP_PASSWORD", ""),
			FromAddress: get("SMTP_FROM_ADDRESS", ""),
			FromName:    get("SMTP_FROM_NAME", "FundiConnect"),
		},

		ReconcileSchedule: get("RECONCILE_SCHEDULE", "@every 5m"),
		ReconcileMinAge:   duration("RECONCILE_MIN_AGE", 2*time.Minute),
	}
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func duration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
