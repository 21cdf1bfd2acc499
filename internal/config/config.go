// Package config provides environment-driven configuration for the
// library's pool construction and the demo server/CLI, grounded on the
// teacher's Config/getEnv pattern (internal/config/config.go).
package config

import (
	"os"
	"strconv"

	"cognitosrp/internal/bignum"
	"cognitosrp/internal/cogerr"
)

// PoolConfig is everything needed to wire an authflow.Pool from the
// environment: the remote service coordinates, the paranoia parameter,
// and the local token-store location.
type PoolConfig struct {
	Endpoint     string
	ClientID     string
	PoolIDSuffix string
	Paranoia     int

	TokenStorePath string

	Port string
	Host string
}

// PoolConfigFromEnv reads a PoolConfig from the environment, applying
// the same defaults-with-override shape as the teacher's config.New.
func PoolConfigFromEnv() (*PoolConfig, error) {
	paranoia, err := strconv.Atoi(getEnv("COGNITOSRP_PARANOIA", "7"))
	if err != nil {
		return nil, cogerr.InvalidArgument("COGNITOSRP_PARANOIA must be an integer")
	}
	if err := bignum.ValidateParanoia(paranoia); err != nil {
		return nil, cogerr.InvalidArgument(err.Error())
	}

	cfg := &PoolConfig{
		Endpoint:       getEnv("COGNITOSRP_ENDPOINT", ""),
		ClientID:       getEnv("COGNITOSRP_CLIENT_ID", ""),
		PoolIDSuffix:   getEnv("COGNITOSRP_POOL_ID_SUFFIX", ""),
		Paranoia:       paranoia,
		TokenStorePath: getEnv("COGNITOSRP_TOKEN_STORE", "data/tokens.db"),
		Port:           getEnv("PORT", "8080"),
		Host:           getEnv("HOST", "localhost"),
	}

	if cfg.Endpoint == "" {
		return nil, cogerr.InvalidArgument("COGNITOSRP_ENDPOINT is required")
	}
	if cfg.ClientID == "" {
		return nil, cogerr.InvalidArgument("COGNITOSRP_CLIENT_ID is required")
	}
	if cfg.PoolIDSuffix == "" {
		return nil, cogerr.InvalidArgument("COGNITOSRP_POOL_ID_SUFFIX is required")
	}

	return cfg, nil
}

// Address returns the full address to bind the demo server to.
func (c *PoolConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
