package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is loaded from the environment; main loads a .env file first
// when one is present.
type Config struct {
	Port        string
	Env         string
	TokenSecret string

	// ArchivePath enables the sqlite receipt archive when non-empty.
	ArchivePath string

	// Fee policy selection: flat, tiered, or peak.
	FeePolicy string
	BaseRate  int64
	PeakHours bool

	// How long a reservation holds a slot before entry.
	ReservationHold time.Duration
}

func Load() (*Config, error) {
	hold, err := getEnvDuration("RESERVATION_HOLD", 4*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            getEnvString("SERVER_PORT", "8080"),
		Env:             getEnvString("ENVIRONMENT", "development"),
		TokenSecret:     getEnvString("TOKEN_SECRET", ""),
		ArchivePath:     getEnvString("ARCHIVE_PATH", ""),
		FeePolicy:       getEnvString("FEE_POLICY", "flat"),
		BaseRate:        getEnvInt64("BASE_RATE", 3),
		PeakHours:       getEnvBool("PEAK_HOURS", false),
		ReservationHold: hold,
	}

	switch cfg.FeePolicy {
	case "flat", "tiered", "peak":
	default:
		return nil, fmt.Errorf("invalid FEE_POLICY %q: must be flat, tiered, or peak", cfg.FeePolicy)
	}
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}
