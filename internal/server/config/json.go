package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration wraps time.Duration so JSON config files can express intervals
// either as strings such as "24h" or as integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
}

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, set fields are copied into the
// runtime Config.
type JsonConfig struct {
	ListenAddr            *string   `json:"listen_addr"`
	DataDir               *string   `json:"data_dir"`
	DatabaseDSN           *string   `json:"database_dsn"`
	SecretKey             *string   `json:"secret_key"`
	TokenValidityDuration *Duration `json:"token_validity_duration"`
	EngineCommand         *string   `json:"engine_command"`
	EngineDiscoverArgs    []string  `json:"engine_discover_args"`
	EngineInstallArgs     []string  `json:"engine_install_args"`
	ToolAllowList         []string  `json:"tool_allow_list"`
	ToolTimeout           *Duration `json:"tool_timeout"`
	APICredentialEnvVar   *string   `json:"api_credential_env_var"`
	DefaultAPICredential  *string   `json:"default_api_credential"`
	MaxUploadBytes        *int64    `json:"max_upload_bytes"`
	MaxFileReadBytes      *int64    `json:"max_file_read_bytes"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. An empty path means no JSON file is loaded. Only fields
// present in the file override the current values; the caller is expected to
// merge them with defaults and environment overrides as part of the full
// configuration process.
func parseJson(config *Config, path string) error {

	// nothing to load
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file read error: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config file parse error: %w", err)
	}

	if c.ListenAddr != nil {
		config.ListenAddr = *c.ListenAddr
	}
	if c.DataDir != nil {
		config.DataDir = *c.DataDir
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.EngineCommand != nil {
		config.EngineCommand = *c.EngineCommand
	}
	if c.EngineDiscoverArgs != nil {
		config.EngineDiscoverArgs = c.EngineDiscoverArgs
	}
	if c.EngineInstallArgs != nil {
		config.EngineInstallArgs = c.EngineInstallArgs
	}
	if c.ToolAllowList != nil {
		config.ToolAllowList = c.ToolAllowList
	}
	if c.ToolTimeout != nil {
		config.ToolTimeout = c.ToolTimeout.Duration
	}
	if c.APICredentialEnvVar != nil {
		config.APICredentialEnvVar = *c.APICredentialEnvVar
	}
	if c.DefaultAPICredential != nil {
		config.DefaultAPICredential = *c.DefaultAPICredential
	}
	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	if c.MaxFileReadBytes != nil {
		config.MaxFileReadBytes = *c.MaxFileReadBytes
	}

	return nil
}
