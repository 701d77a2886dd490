package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BOOKING_HOLD_MINUTES", "BOOKING_SWEEP_INTERVAL", "PAYMENT_CURRENCY", "CACHE_ENABLED", "DB_MAX_OPEN_CONNS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Booking.HoldDuration != 15*time.Minute {
		t.Errorf("HoldDuration = %v, want 15m", cfg.Booking.HoldDuration)
	}
	if cfg.Booking.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", cfg.Booking.SweepInterval)
	}
	if cfg.Payment.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", cfg.Payment.Currency)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.Database.MaxOpenConns != 100 {
		t.Errorf("MaxOpenConns = %d, want 100", cfg.Database.MaxOpenConns)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOOKING_HOLD_MINUTES", "5")
	t.Setenv("BOOKING_SWEEP_INTERVAL", "30s")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("PAYMENT_BASE_URL", "http://localhost:9000/")
	t.Setenv("DB_MAX_IDLE_CONNS", "-3")

	cfg := Load()

	if cfg.Booking.HoldDuration != 5*time.Minute {
		t.Errorf("HoldDuration = %v, want 5m", cfg.Booking.HoldDuration)
	}
	if cfg.Booking.SweepInterval != 30*time.Second {
		t.Errorf("SweepInterval = %v, want 30s", cfg.Booking.SweepInterval)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled")
	}
	if cfg.Payment.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q", cfg.Payment.BaseURL)
	}
	if cfg.Database.MaxIdleConns != 25 {
		t.Errorf("negative value must fall back to default, got %d", cfg.Database.MaxIdleConns)
	}
}
