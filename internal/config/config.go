package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config настройки приложения из переменных окружения
type Config struct {
	Port    string
	GinMode string

	Database DatabaseConfig
	Redis    RedisConfig
	Booking  BookingConfig
	Payment  PaymentConfig
	Cache    CacheConfig

	JWTSecret         string
	RabbitMQURL       string
	FirebaseServerKey string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// DSN строка подключения к PostgreSQL
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// BookingConfig параметры удержания мест и фоновой очистки
type BookingConfig struct {
	HoldDuration  time.Duration
	SweepInterval time.Duration
	SweepBatch    int
}

type PaymentConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
	BaseURL   string
	Timeout   time.Duration
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// Load читает конфигурацию из окружения, подставляя значения по умолчанию
func Load() Config {
	return Config{
		Port:    envStr("PORT", "8080"),
		GinMode: envStr("GIN_MODE", "debug"),
		Database: DatabaseConfig{
			Host:            envStr("DB_HOST", "localhost"),
			Port:            envStr("DB_PORT", "5432"),
			User:            envStr("DB_USER", "postgres"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            envStr("DB_NAME", "carpool"),
			SSLMode:         envStr("DB_SSLMODE", "disable"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: time.Duration(envInt("DB_CONN_MAX_LIFETIME_MINUTES", 60)) * time.Minute,
			ConnectAttempts: 5,
			ConnectDelay:    5 * time.Second,
		},
		Redis: RedisConfig{
			Host:     envStr("REDIS_HOST", "localhost"),
			Port:     envStr("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		Booking: BookingConfig{
			HoldDuration:  time.Duration(envInt("BOOKING_HOLD_MINUTES", 15)) * time.Minute,
			SweepInterval: envDur("BOOKING_SWEEP_INTERVAL", time.Minute),
			SweepBatch:    envInt("BOOKING_SWEEP_BATCH", 200),
		},
		Payment: PaymentConfig{
			KeyID:     os.Getenv("PAYMENT_KEY_ID"),
			KeySecret: os.Getenv("PAYMENT_KEY_SECRET"),
			Currency:  envStr("PAYMENT_CURRENCY", "INR"),
			BaseURL:   strings.TrimRight(envStr("PAYMENT_BASE_URL", "https://api.razorpay.com"), "/"),
			Timeout:   envDur("PAYMENT_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			Enabled: envBool("CACHE_ENABLED", true),
			TTL:     envDur("CACHE_TTL", 5*time.Minute),
		},
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		FirebaseServerKey: os.Getenv("FIREBASE_SERVER_KEY"),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}
