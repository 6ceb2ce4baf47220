// Package config loads the small set of environment-driven settings this
// service needs. Grounded on the teacher's services/config/config.go shape
// (a small service struct with an explicit load path); the embedded-JSON +
// retained-bus-message mechanism itself doesn't carry over since this
// service has no flash image and no message bus.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the service's runtime configuration.
type Config struct {
	// I2CBusNumber selects which /dev/i2c-N device to open.
	I2CBusNumber int
	// SessionTimeout bounds how long a caller waits to acquire a busy
	// address before getting BusBusy back.
	SessionTimeout time.Duration
	// ListenAddress is the HTTP listen address for the ambient API.
	ListenAddress string
}

// FromEnv builds a Config from environment variables, falling back to
// sensible defaults for anything unset or unparsable.
func FromEnv() Config {
	cfg := Config{
		I2CBusNumber:   1,
		SessionTimeout: 30 * time.Second,
		ListenAddress:  ":8080",
	}

	if v, ok := os.LookupEnv("ATLAS_I2C_BUS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.I2CBusNumber = n
		}
	}
	if v, ok := os.LookupEnv("ATLAS_SESSION_TIMEOUT_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionTimeout = time.Duration(n) * time.Second
		}
	}
	if v, ok := os.LookupEnv("ATLAS_LISTEN_ADDRESS"); ok && v != "" {
		cfg.ListenAddress = v
	}

	return cfg
}
