package server

import (
	"os"
	"strings"
)

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string

	// AllowedOrigins is the CORS allow-list. "*" allows any origin.
	AllowedOrigins []string

	// MaxTokens bounds each LLM response.
	MaxTokens int

	// Temperature is passed through to the LLM for the tutoring streams.
	// Structured calls (solution, verdict) always run at 0.
	Temperature float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8090",
		AllowedOrigins: []string{"*"},
		MaxTokens:      2048,
		Temperature:    0.7,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if a := os.Getenv("STEPWISE_ADDR"); a != "" {
		cfg.Addr = a
	}
	if o := os.Getenv("STEPWISE_ALLOWED_ORIGINS"); o != "" {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(o, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	return cfg
}
