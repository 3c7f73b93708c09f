// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	RedisURL        string
	WalletSecret    string
	IssuerName      string
	MonitorCapacity int
	JanitorInterval time.Duration
	ShutdownTimeout time.Duration
}

// FromEnv reads configuration with development defaults.
func FromEnv() Server {
	addr := os.Getenv("IDWALLET_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	secret := os.Getenv("IDWALLET_SECRET")
	if secret == "" {
		// Development default - must be overridden in production.
		secret = "dev-wallet-secret-change-in-production"
	}

	capacity := 1000
	if v := os.Getenv("IDWALLET_MONITOR_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			capacity = n
		}
	}

	return Server{
		Addr:            addr,
		RedisURL:        os.Getenv("IDWALLET_REDIS_URL"),
		WalletSecret:    secret,
		IssuerName:      os.Getenv("IDWALLET_ISSUER_NAME"),
		MonitorCapacity: capacity,
		JanitorInterval: time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}
