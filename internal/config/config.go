package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	Environment string

	Log       LogConfig
	OTP       OTPConfig
	Exam      ExamConfig
	SMS       SMSConfig
	Events    EventConfig
	Storage   StorageConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// OTPConfig controls code issuance and verification.
type OTPConfig struct {
	Required           bool
	CodeTTL            time.Duration
	ResendCooldown     time.Duration
	MaxVerifyAttempts  int
	MaxSendsPerWindow  int
	SendWindow         time.Duration
	VerificationWindow time.Duration
	SendTimeout        time.Duration
}

type ExamConfig struct {
	TabSwitchLimit      int
	ScoreFloor          float64
	SweepInterval       time.Duration
	SweepConcurrency    int
	RankingCacheTTL     time.Duration
	RankSnapshotEvery   time.Duration
	OtpRetention        time.Duration
	DefaultPageSize     int
	MaxMeritListEntries int
}

type SMSConfig struct {
	Provider    string // kavenegar or noop
	APIKey      string
	Sender      string
	OTPTemplate string
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type AuthConfig struct {
	Enabled          bool
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

type RateLimitConfig struct {
	OTPRequests int
	OTPWindow   time.Duration
}

// LoadConfig reads the environment, after loading a .env file when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		Environment: getEnv("ENVIRONMENT", "development"),
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		},
		OTP: OTPConfig{
			Required:           getEnvBool("OTP_REQUIRED", true),
			CodeTTL:            getEnvDuration("OTP_CODE_TTL", 5*time.Minute),
			ResendCooldown:     getEnvDuration("OTP_RESEND_COOLDOWN", 60*time.Second),
			MaxVerifyAttempts:  getEnvInt("OTP_MAX_VERIFY_ATTEMPTS", 5),
			MaxSendsPerWindow:  getEnvInt("OTP_MAX_SENDS_PER_WINDOW", 5),
			SendWindow:         getEnvDuration("OTP_SEND_WINDOW", time.Hour),
			VerificationWindow: getEnvDuration("OTP_VERIFICATION_WINDOW", 30*time.Minute),
			SendTimeout:        getEnvDuration("OTP_SEND_TIMEOUT", 10*time.Second),
		},
		Exam: ExamConfig{
			TabSwitchLimit:      getEnvInt("EXAM_TAB_SWITCH_LIMIT", 3),
			ScoreFloor:          getEnvFloat("EXAM_SCORE_FLOOR", 0),
			SweepInterval:       getEnvDuration("EXAM_SWEEP_INTERVAL", 30*time.Second),
			SweepConcurrency:    getEnvInt("EXAM_SWEEP_CONCURRENCY", 8),
			RankingCacheTTL:     getEnvDuration("RANKING_CACHE_TTL", 30*time.Second),
			RankSnapshotEvery:   getEnvDuration("RANK_SNAPSHOT_INTERVAL", 24*time.Hour),
			OtpRetention:        getEnvDuration("OTP_RETENTION", 24*time.Hour),
			DefaultPageSize:     getEnvInt("RANKING_PAGE_SIZE", 100),
			MaxMeritListEntries: getEnvInt("MERIT_LIST_MAX_ENTRIES", 100000),
		},
		SMS: SMSConfig{
			Provider:    getEnv("SMS_PROVIDER", "noop"),
			APIKey:      getEnv("SMS_API_KEY", ""),
			Sender:      getEnv("SMS_SENDER", ""),
			OTPTemplate: getEnv("SMS_OTP_TEMPLATE", "verify"),
		},
		Events: EventConfig{
			Enabled:      getEnvBool("EVENTS_ENABLED", false),
			Publisher:    getEnv("EVENTS_PUBLISHER", "kafka"),
			KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
			Topic:        getEnv("EXAM_EVENTS_TOPIC", "exam-events"),
		},
		Storage: StorageConfig{
			Enabled:   getEnvBool("STORAGE_ENABLED", false),
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "merit-lists"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Auth: AuthConfig{
			Enabled:          getEnvBool("AUTH_ENABLED", false),
			Endpoint:         getEnv("CASDOOR_ENDPOINT", ""),
			ClientID:         getEnv("CASDOOR_CLIENT_ID", ""),
			ClientSecret:     getEnv("CASDOOR_CLIENT_SECRET", ""),
			Certificate:      getEnv("CASDOOR_CERTIFICATE", ""),
			OrganizationName: getEnv("CASDOOR_ORGANIZATION", ""),
			ApplicationName:  getEnv("CASDOOR_APPLICATION", ""),
		},
		RateLimit: RateLimitConfig{
			OTPRequests: getEnvInt("RATE_LIMIT_OTP_REQUESTS", 10),
			OTPWindow:   getEnvDuration("RATE_LIMIT_OTP_WINDOW", time.Minute),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
