package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr        string `json:"addr" yaml:"addr" toml:"addr"`
	DeviceID    int    `json:"device_id" yaml:"device_id" toml:"device_id"`
	MachineType string `json:"machine_type" yaml:"machine_type" toml:"machine_type"`
	// CatalogPath optionally overrides the built-in operation catalog.
	CatalogPath string `json:"catalog_path" yaml:"catalog_path" toml:"catalog_path"`
	// SDKDir is the accelerator SDK checkout queried for revision info.
	SDKDir string `json:"sdk_dir" yaml:"sdk_dir" toml:"sdk_dir"`
	// ResetTool is the vendor CLI used by POST /api/device/reset.
	ResetTool    string `json:"reset_tool" yaml:"reset_tool" toml:"reset_tool"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	// CORS (opt-in).
	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`

	// Settings consumed by excluded components (session handling and
	// outbound bug-report mail); parsed and carried, never read by the
	// core.
	SessionSecret         string `json:"session_secret" yaml:"session_secret" toml:"session_secret"`
	SessionTimeoutMinutes int    `json:"session_timeout_minutes" yaml:"session_timeout_minutes" toml:"session_timeout_minutes"`
	LockoutThreshold      int    `json:"lockout_threshold" yaml:"lockout_threshold" toml:"lockout_threshold"`
	MailAPIKey            string `json:"mail_api_key" yaml:"mail_api_key" toml:"mail_api_key"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// FromEnv overlays environment variables onto cfg. Environment wins over
// the file for the settings operators commonly override per host.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("OPCALCD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("OPCALCD_SDK_DIR"); v != "" {
		cfg.SDKDir = v
	}
	if v := os.Getenv("OPCALCD_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("OPCALCD_MAIL_API_KEY"); v != "" {
		cfg.MailAPIKey = v
	}
	if v := os.Getenv("OPCALCD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}
