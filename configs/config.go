package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Documented development defaults. Validate refuses to run a production
// process with any of these still in place.
const (
	DefaultDevSecret         = "rtlab-dev-secret-do-not-use-in-prod"
	DefaultAdminUsername     = "admin"
	DefaultAdminPassword     = "admin123"
	DefaultViewerUsername    = "viewer"
	DefaultViewerPassword    = "viewer123"
	MinProductionSecretChars = 32
)

// Config holds all configuration for the dashboard service.
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Backend BackendConfig
	Mock    MockConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// AuthConfig holds the session signing secret and the two credential pairs.
type AuthConfig struct {
	Secret         string
	AdminUsername  string
	AdminPassword  string
	ViewerUsername string
	ViewerPassword string
}

// BackendConfig holds upstream trading-backend wiring.
type BackendConfig struct {
	APIURL             string
	UseMockOverride    *bool // nil when USE_MOCK_API is unset
	FallbackOnError    bool
	Timeout            time.Duration
	InternalProxyToken string
}

// MockConfig holds mock-backend persistence and simulation settings.
type MockConfig struct {
	StatePath    string
	AuditLogPath string
	TickInterval time.Duration
}

// configFile mirrors the optional YAML configuration file. Environment
// variables always win over file values.
type configFile struct {
	Server struct {
		Port     string `yaml:"port"`
		Env      string `yaml:"env"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"server"`

	Auth struct {
		Secret         string `yaml:"secret"`
		AdminUsername  string `yaml:"adminUsername"`
		AdminPassword  string `yaml:"adminPassword"`
		ViewerUsername string `yaml:"viewerUsername"`
		ViewerPassword string `yaml:"viewerPassword"`
	} `yaml:"auth"`

	Backend struct {
		APIURL             string `yaml:"apiURL"`
		UseMockAPI         string `yaml:"useMockAPI"` // "", "true" or "false"
		FallbackOnError    bool   `yaml:"fallbackOnError"`
		TimeoutMS          int    `yaml:"timeoutMS"`
		InternalProxyToken string `yaml:"internalProxyToken"`
	} `yaml:"backend"`

	Mock struct {
		StatePath    string `yaml:"statePath"`
		AuditLogPath string `yaml:"auditLogPath"`
		TickMS       int    `yaml:"tickMS"`
	} `yaml:"mock"`
}

// Load builds the configuration from the optional CONFIG_FILE YAML plus
// environment overrides, then validates it.
func Load() (*Config, error) {
	var file configFile
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvOrDefault("PORT", orDefault(file.Server.Port, "8080")),
			Env:      getEnvOrDefault("GO_ENV", orDefault(file.Server.Env, "development")),
			LogLevel: getEnvOrDefault("LOG_LEVEL", orDefault(file.Server.LogLevel, "info")),
		},
		Auth: AuthConfig{
			Secret:         getEnvOrDefault("AUTH_SECRET", orDefault(file.Auth.Secret, DefaultDevSecret)),
			AdminUsername:  getEnvOrDefault("ADMIN_USERNAME", orDefault(file.Auth.AdminUsername, DefaultAdminUsername)),
			AdminPassword:  getEnvOrDefault("ADMIN_PASSWORD", orDefault(file.Auth.AdminPassword, DefaultAdminPassword)),
			ViewerUsername: getEnvOrDefault("VIEWER_USERNAME", orDefault(file.Auth.ViewerUsername, DefaultViewerUsername)),
			ViewerPassword: getEnvOrDefault("VIEWER_PASSWORD", orDefault(file.Auth.ViewerPassword, DefaultViewerPassword)),
		},
		Backend: BackendConfig{
			APIURL:             getEnvOrDefault("BACKEND_API_URL", file.Backend.APIURL),
			UseMockOverride:    getBoolPtr("USE_MOCK_API", file.Backend.UseMockAPI),
			FallbackOnError:    getBoolOrDefault("ENABLE_MOCK_FALLBACK_ON_BACKEND_ERROR", file.Backend.FallbackOnError),
			Timeout:            getMillisOrDefault("BFF_TIMEOUT_MS", file.Backend.TimeoutMS, 30*time.Second),
			InternalProxyToken: getEnvOrDefault("INTERNAL_PROXY_TOKEN", file.Backend.InternalProxyToken),
		},
		Mock: MockConfig{
			StatePath:    getEnvOrDefault("MOCK_STATE_PATH", orDefault(file.Mock.StatePath, "data/mock_state.json")),
			AuditLogPath: getEnvOrDefault("MOCK_AUDIT_LOG_PATH", orDefault(file.Mock.AuditLogPath, "data/mock_audit.ndjson")),
			TickInterval: getMillisOrDefault("MOCK_TICK_MS", file.Mock.TickMS, 3500*time.Millisecond),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the process runs in a production-classified
// environment.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// UseMockAPI decides whether the mock backend serves requests. An explicit
// USE_MOCK_API override wins; otherwise mock mode is on whenever no upstream
// base URL is configured, regardless of environment. This is a deliberate
// safe-demo default rather than a hard failure on incomplete wiring.
func (c *Config) UseMockAPI() bool {
	if c.Backend.UseMockOverride != nil {
		return *c.Backend.UseMockOverride
	}
	return c.Backend.APIURL == ""
}

// Validate fails fast on values that must stop startup. In production it
// refuses the documented development secret, a weak secret, and credential
// pairs left at their documented defaults.
func (c *Config) Validate() error {
	if c.Backend.Timeout < time.Second || c.Backend.Timeout > 5*time.Minute {
		return fmt.Errorf("backend timeout must be between 1s and 5m, got %v", c.Backend.Timeout)
	}
	if c.Mock.TickInterval < 100*time.Millisecond || c.Mock.TickInterval > time.Minute {
		return fmt.Errorf("mock tick interval must be between 100ms and 1m, got %v", c.Mock.TickInterval)
	}
	if c.Auth.AdminUsername == "" || c.Auth.AdminPassword == "" {
		return fmt.Errorf("admin credentials are required")
	}
	if c.Auth.ViewerUsername == "" || c.Auth.ViewerPassword == "" {
		return fmt.Errorf("viewer credentials are required")
	}

	if !c.IsProduction() {
		return nil
	}

	if c.Auth.Secret == DefaultDevSecret {
		return fmt.Errorf("AUTH_SECRET is the development default; set a real secret in production")
	}
	if len(c.Auth.Secret) < MinProductionSecretChars {
		return fmt.Errorf("AUTH_SECRET must be at least %d characters in production, got %d",
			MinProductionSecretChars, len(c.Auth.Secret))
	}
	if c.Auth.AdminUsername == DefaultAdminUsername && c.Auth.AdminPassword == DefaultAdminPassword {
		return fmt.Errorf("admin credentials are the development defaults; change them in production")
	}
	if c.Auth.ViewerUsername == DefaultViewerUsername && c.Auth.ViewerPassword == DefaultViewerPassword {
		return fmt.Errorf("viewer credentials are the development defaults; change them in production")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// getBoolPtr returns nil when neither the env var nor the file value is set,
// so callers can distinguish "unset" from an explicit false.
func getBoolPtr(key, fileValue string) *bool {
	v := os.Getenv(key)
	if v == "" {
		v = fileValue
	}
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func getMillisOrDefault(key string, fileValue int, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if fileValue > 0 {
		return time.Duration(fileValue) * time.Millisecond
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
