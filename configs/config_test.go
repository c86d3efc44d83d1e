package configs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "GO_ENV", "LOG_LEVEL",
		"AUTH_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD",
		"VIEWER_USERNAME", "VIEWER_PASSWORD",
		"BACKEND_API_URL", "USE_MOCK_API",
		"ENABLE_MOCK_FALLBACK_ON_BACKEND_ERROR", "BFF_TIMEOUT_MS",
		"INTERNAL_PROXY_TOKEN", "MOCK_STATE_PATH", "MOCK_AUDIT_LOG_PATH",
		"MOCK_TICK_MS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, DefaultDevSecret, cfg.Auth.Secret)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 3500*time.Millisecond, cfg.Mock.TickInterval)
	assert.False(t, cfg.IsProduction())
}

func TestUseMockAPI(t *testing.T) {
	tests := []struct {
		name     string
		apiURL   string
		override string
		env      string
		want     bool
	}{
		{name: "no backend url means mock", apiURL: "", want: true},
		{name: "no backend url means mock even in production", apiURL: "", env: "production", want: true},
		{name: "backend url disables mock", apiURL: "http://backend:9000", want: false},
		{name: "override forces mock despite backend url", apiURL: "http://backend:9000", override: "true", want: true},
		{name: "override forces real despite missing url", apiURL: "", override: "false", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BACKEND_API_URL", tt.apiURL)
			t.Setenv("USE_MOCK_API", tt.override)
			if tt.env != "" {
				t.Setenv("GO_ENV", tt.env)
				// Production needs a valid auth block to get past Validate.
				t.Setenv("AUTH_SECRET", strings.Repeat("s", 48))
				t.Setenv("ADMIN_PASSWORD", "not-the-default")
				t.Setenv("VIEWER_PASSWORD", "not-the-default-either")
			}

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.UseMockAPI())
		})
	}
}

func TestValidateProductionGuards(t *testing.T) {
	strong := strings.Repeat("x", 48)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "default secret refused",
			mutate:  func(c *Config) { c.Auth.Secret = DefaultDevSecret },
			wantErr: "development default",
		},
		{
			name:    "short secret refused",
			mutate:  func(c *Config) { c.Auth.Secret = "too-short" },
			wantErr: "at least 32 characters",
		},
		{
			name: "default admin credentials refused",
			mutate: func(c *Config) {
				c.Auth.AdminUsername = DefaultAdminUsername
				c.Auth.AdminPassword = DefaultAdminPassword
			},
			wantErr: "admin credentials",
		},
		{
			name: "default viewer credentials refused",
			mutate: func(c *Config) {
				c.Auth.ViewerUsername = DefaultViewerUsername
				c.Auth.ViewerPassword = DefaultViewerPassword
			},
			wantErr: "viewer credentials",
		},
		{
			name:   "strong unique values accepted",
			mutate: func(c *Config) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{Env: "production"},
				Auth: AuthConfig{
					Secret:         strong,
					AdminUsername:  "ops",
					AdminPassword:  "a-real-admin-password",
					ViewerUsername: "desk",
					ViewerPassword: "a-real-viewer-password",
				},
				Backend: BackendConfig{Timeout: 30 * time.Second},
				Mock:    MockConfig{TickInterval: 3500 * time.Millisecond},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateDevelopmentAcceptsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestTimeoutFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BFF_TIMEOUT_MS", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
}

func TestTimeoutBounds(t *testing.T) {
	clearEnv(t)
	t.Setenv("BFF_TIMEOUT_MS", "500")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
