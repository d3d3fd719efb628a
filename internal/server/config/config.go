// Package config handles configuration for the gateway server,
// including defaults, JSON overlay, and environment overrides.
package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the termgate server.
//
// Fields:
//   - ListenAddr: bind address for the HTTP/websocket endpoint.
//   - DataDir: root directory for server-owned state (registry, user homes).
//   - DatabaseDSN: SQLite DSN for the user registry. Derived from DataDir
//     when left empty.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - TokenValidityDuration: session token lifetime.
//   - EngineCommand: the interactive engine binary spawned per session.
//   - EngineDiscoverArgs: engine arguments that print one tool id per line.
//   - EngineInstallArgs: engine arguments that install a tool; the tool id
//     is appended as the final argument.
//   - ToolAllowList: operator override; when non-empty, discovery is skipped.
//   - ToolTimeout: per-tool bound for discovery and install attempts.
//   - APICredentialEnvVar: environment variable name used to pass the
//     per-user API credential to the engine.
//   - DefaultAPICredential: fallback credential for users without one.
//   - MaxUploadBytes / MaxFileReadBytes: size caps for the file endpoints.
type Config struct {
	ListenAddr            string
	DataDir               string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	EngineCommand         string
	EngineDiscoverArgs    []string
	EngineInstallArgs     []string
	ToolAllowList         []string
	ToolTimeout           time.Duration
	APICredentialEnvVar   string
	DefaultAPICredential  string
	MaxUploadBytes        int64
	MaxFileReadBytes      int64
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.DataDir = "./data"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 24 * time.Hour
	c.EngineCommand = "claude"
	c.EngineDiscoverArgs = []string{"mcp", "list"}
	c.EngineInstallArgs = []string{"mcp", "install"}
	c.ToolAllowList = nil
	c.ToolTimeout = 30 * time.Second
	c.APICredentialEnvVar = "ANTHROPIC_API_KEY"
	c.DefaultAPICredential = ""
	c.MaxUploadBytes = 32 << 20
	c.MaxFileReadBytes = 4 << 20
}

// RegistryDSN returns the DSN of the user registry: the explicit DatabaseDSN
// when configured, otherwise a SQLite file inside DataDir.
func (c *Config) RegistryDSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	return filepath.Join(c.DataDir, "termgate.db")
}

// HomesDir returns the directory under which per-user home directories are
// created by default.
func (c *Config) HomesDir() string {
	return filepath.Join(c.DataDir, "homes")
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from environment variables.
func LoadConfig(jsonPath string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, jsonPath); err != nil {
		return nil, err
	}
	parseEnv(cfg)
	return cfg, nil
}
