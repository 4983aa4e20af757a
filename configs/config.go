package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type OpenAI struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Policy holds the named pipeline policies that operators may override.
type Policy struct {
	MaxRewrites            int
	SeoPassScore           int
	PublishOnFailedGate    bool
	PublishOnPartialAssets bool
	RefundOnFailure        bool
	AssetPollInterval      time.Duration
	AssetMaxAttempts       int
}

type Config struct {
	Port              string
	LogLevel          string
	LogFormat         string
	DatabaseDriver    string
	PostgresURI       string
	MySQLDSN          string
	RedisURI          string
	RabbitMQURL       string
	FrontendURL       string
	Google            Google
	R2                R2
	OpenAI            OpenAI
	SecretKey         string
	EncryptionKey     string
	CookieName        string
	RendererURL       string
	RendererTimeout   time.Duration
	PricingFile       string
	DefaultTopic      string
	AssetBatchSize    int
	TrackingBatchSize int
	RetentionDays     int
	SchedulerTimezone string
	Policy            Policy
}

func LoadConfig() *Config {
	return &Config{
		Port:           getEnv("PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		DatabaseDriver: getEnv("DB_DRIVER", "postgres"),
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		MySQLDSN:       getEnv("MYSQL_DSN", ""),
		RedisURI:       getEnv("REDIS_URI", "localhost:6379"),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		Google: Google{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:3000/login/callback"),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		OpenAI: OpenAI{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 4096),
		},
		SecretKey:         getEnv("SECRET_KEY", ""),
		EncryptionKey:     getEnv("ENCRYPTION_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "autopost_token"),
		RendererURL:       getEnv("RENDERER_URL", "http://127.0.0.1:8188"),
		RendererTimeout:   getEnvDuration("RENDERER_TIMEOUT", 120*time.Second),
		PricingFile:       getEnv("PRICING_FILE", "configs/pricing.yaml"),
		DefaultTopic:      getEnv("DEFAULT_TOPIC", "daily life"),
		AssetBatchSize:    getEnvInt("ASSET_BATCH_SIZE", 5),
		TrackingBatchSize: getEnvInt("TRACKING_BATCH_SIZE", 20),
		RetentionDays:     getEnvInt("RETENTION_DAYS", 7),
		SchedulerTimezone: getEnv("SCHEDULER_TIMEZONE", "UTC"),
		Policy: Policy{
			MaxRewrites:            getEnvInt("MAX_REWRITES", 2),
			SeoPassScore:           getEnvInt("SEO_PASS_SCORE", 70),
			PublishOnFailedGate:    getEnvBool("PUBLISH_ON_FAILED_GATE", true),
			PublishOnPartialAssets: getEnvBool("PUBLISH_ON_PARTIAL_ASSETS", true),
			RefundOnFailure:        getEnvBool("REFUND_ON_FAILURE", false),
			AssetPollInterval:      getEnvDuration("ASSET_POLL_INTERVAL", 5*time.Second),
			AssetMaxAttempts:       getEnvInt("ASSET_MAX_ATTEMPTS", 60),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
