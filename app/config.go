package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"sandbox-svc/app/services"
)

// Config holds application configuration. Values come from built-in
// defaults, overridden by an optional YAML file (CONFIG_FILE), overridden
// by environment variables.
type Config struct {
	Port string `yaml:"port"`

	SandboxImage string `yaml:"sandbox_image"`
	BrowserImage string `yaml:"browser_image"`

	DefaultMemoryLimit    string `yaml:"default_memory_limit"`
	DefaultTimeoutSeconds int    `yaml:"default_timeout_seconds"`
	MaxTimeoutSeconds     int    `yaml:"max_timeout_seconds"`
	BrowserTimeoutSeconds int    `yaml:"browser_timeout_seconds"`
	DefaultNetworkMode    string `yaml:"default_network_mode"`
	BrowserNetworkMode    string `yaml:"browser_network_mode"`

	WorkerPoolSize int  `yaml:"worker_pool_size"`
	QueueOnBusy    bool `yaml:"queue_on_busy"`

	MaxOutputBytes int   `yaml:"max_output_bytes"`
	MaxFileBytes   int64 `yaml:"max_file_bytes"`

	WorkspaceMode string `yaml:"workspace_mode"`
	WorkspaceRoot string `yaml:"workspace_root"`
	SQLitePath    string `yaml:"sqlite_path"`

	SessionIdleHours       int `yaml:"session_idle_hours"`
	ExecutionRetentionDays int `yaml:"execution_retention_days"`

	AuthJWTSecret   string `yaml:"auth_jwt_secret"`
	AuthTokenTTLSec int64  `yaml:"auth_token_ttl_sec"`

	// BrowserCredential is injected into browser task containers only.
	// It must never be logged or written into a workspace.
	BrowserCredential string `yaml:"browser_credential"`

	CORSOrigins []string `yaml:"cors_origins"`
}

// LoadConfig loads configuration from defaults, an optional YAML file,
// and environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                   "8080",
		SandboxImage:           "sandbox-runtime:latest",
		BrowserImage:           "sandbox-browser:latest",
		DefaultMemoryLimit:     "256m",
		DefaultTimeoutSeconds:  60,
		MaxTimeoutSeconds:      600,
		BrowserTimeoutSeconds:  300,
		DefaultNetworkMode:     "none",
		BrowserNetworkMode:     "bridge",
		WorkerPoolSize:         10,
		QueueOnBusy:            true,
		MaxOutputBytes:         1 << 20,
		MaxFileBytes:           10 << 20,
		WorkspaceMode:          services.WorkspaceModeVolume,
		WorkspaceRoot:          "/var/lib/sandbox-svc/workspaces",
		SQLitePath:             "/var/lib/sandbox-svc/sandbox.db",
		SessionIdleHours:       0,
		ExecutionRetentionDays: 7,
		AuthTokenTTLSec:        86400,
		CORSOrigins:            []string{"http://localhost:5173", "http://localhost:3000"},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.SandboxImage = getEnv("SANDBOX_IMAGE", cfg.SandboxImage)
	cfg.BrowserImage = getEnv("BROWSER_IMAGE", cfg.BrowserImage)
	cfg.DefaultMemoryLimit = getEnv("DEFAULT_MEMORY_LIMIT", cfg.DefaultMemoryLimit)
	cfg.DefaultTimeoutSeconds = getEnvInt("DEFAULT_TIMEOUT_SECONDS", cfg.DefaultTimeoutSeconds)
	cfg.MaxTimeoutSeconds = getEnvInt("MAX_TIMEOUT_SECONDS", cfg.MaxTimeoutSeconds)
	cfg.BrowserTimeoutSeconds = getEnvInt("BROWSER_TIMEOUT_SECONDS", cfg.BrowserTimeoutSeconds)
	cfg.DefaultNetworkMode = getEnv("DEFAULT_NETWORK_MODE", cfg.DefaultNetworkMode)
	cfg.BrowserNetworkMode = getEnv("BROWSER_NETWORK_MODE", cfg.BrowserNetworkMode)
	cfg.WorkerPoolSize = getEnvInt("WORKER_POOL_SIZE", cfg.WorkerPoolSize)
	cfg.QueueOnBusy = getEnvBool("QUEUE_ON_BUSY", cfg.QueueOnBusy)
	cfg.MaxOutputBytes = getEnvInt("MAX_OUTPUT_BYTES", cfg.MaxOutputBytes)
	cfg.MaxFileBytes = int64(getEnvInt("MAX_FILE_BYTES", int(cfg.MaxFileBytes)))
	cfg.WorkspaceMode = getEnv("WORKSPACE_MODE", cfg.WorkspaceMode)
	cfg.WorkspaceRoot = getEnv("WORKSPACE_ROOT", cfg.WorkspaceRoot)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.SessionIdleHours = getEnvInt("SESSION_IDLE_HOURS", cfg.SessionIdleHours)
	cfg.ExecutionRetentionDays = getEnvInt("EXECUTION_RETENTION_DAYS", cfg.ExecutionRetentionDays)
	cfg.AuthJWTSecret = getEnv("AUTH_JWT_SECRET", cfg.AuthJWTSecret)
	cfg.AuthTokenTTLSec = int64(getEnvInt("AUTH_TOKEN_TTL_SEC", int(cfg.AuthTokenTTLSec)))
	cfg.BrowserCredential = getEnv("BROWSER_CREDENTIAL", cfg.BrowserCredential)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitAndTrim(origins)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.WorkspaceMode {
	case services.WorkspaceModeVolume, services.WorkspaceModeBind:
	default:
		return fmt.Errorf("WORKSPACE_MODE must be %q or %q, got %q",
			services.WorkspaceModeVolume, services.WorkspaceModeBind, c.WorkspaceMode)
	}
	if c.WorkspaceMode == services.WorkspaceModeBind && c.WorkspaceRoot == "" {
		return fmt.Errorf("WORKSPACE_ROOT must be set in bind mode")
	}
	if c.DefaultTimeoutSeconds <= 0 {
		return fmt.Errorf("DEFAULT_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxTimeoutSeconds < c.DefaultTimeoutSeconds {
		return fmt.Errorf("MAX_TIMEOUT_SECONDS must be at least DEFAULT_TIMEOUT_SECONDS")
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
