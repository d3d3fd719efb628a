package config

import (
	"os"
	"strings"
	"time"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseEnv overlays environment variables onto the Config. Variables that
// are unset or empty leave the current value untouched.
func parseEnv(config *Config) {
	config.ListenAddr = envOr("TERMGATE_ADDR", config.ListenAddr)
	config.DataDir = envOr("TERMGATE_DATA_DIR", config.DataDir)
	config.DatabaseDSN = envOr("TERMGATE_DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = envOr("TERMGATE_SECRET_KEY", config.SecretKey)
	config.EngineCommand = envOr("TERMGATE_ENGINE", config.EngineCommand)
	config.APICredentialEnvVar = envOr("TERMGATE_API_CREDENTIAL_ENV", config.APICredentialEnvVar)
	config.DefaultAPICredential = envOr("TERMGATE_DEFAULT_API_CREDENTIAL", config.DefaultAPICredential)

	if v := os.Getenv("TERMGATE_TOKEN_VALIDITY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.TokenValidityDuration = d
		}
	}
	if v := os.Getenv("TERMGATE_TOOL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ToolTimeout = d
		}
	}
	if v := os.Getenv("TERMGATE_TOOLS"); v != "" {
		var tools []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tools = append(tools, t)
			}
		}
		config.ToolAllowList = tools
	}
}
