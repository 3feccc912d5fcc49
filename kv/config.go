package kv

import (
	"net"
	"strconv"
	"time"
)

// Config holds the connection parameters for the backing key-value service.
// These are environment-provided transport settings, passed through to the
// client unchanged.
type Config struct {
	Host     string
	Port     int
	Password string

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// ReadTimeout / WriteTimeout bound individual commands.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxRetries is how many times a failed command is retried by the
	// client before the error is surfaced to the caller.
	MaxRetries int

	// MinRetryBackoff / MaxRetryBackoff bound the client's own
	// per-command retry backoff.
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults for a local store.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            6379,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	}
}

// Addr returns the host:port address for the client.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
