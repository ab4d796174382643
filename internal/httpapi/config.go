package httpapi

import (
	"fmt"
	"strings"
)

const (
	defaultListenAddr    = ":8082"
	defaultAllowedOrigin = "http://localhost:8000"
	defaultAPIIssuer     = "vaultd"
)

// Config aggregates runtime settings for the vault HTTP API.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	APISigningKey  string
	APIIssuer      string
}

// Validate ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	cfg.APIIssuer = defaultIfEmpty(cfg.APIIssuer, defaultAPIIssuer)
	if len(cfg.APISigningKey) == 0 {
		return fmt.Errorf("api signing key is required")
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
