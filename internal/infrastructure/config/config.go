package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Auth transports understood by the API client.
const (
	TransportBearer = "bearer"
	TransportCookie = "cookie"
)

// Config holds all configuration for the application
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Session       SessionConfig       `mapstructure:"session"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	DevBackend    DevBackendConfig    `mapstructure:"devbackend"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	Security      SecurityConfig      `mapstructure:"security"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BackendConfig describes the external REST backend
type BackendConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	AuthTransport string        `mapstructure:"auth_transport"`
	CookieName    string        `mapstructure:"cookie_name"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// SessionConfig holds the browser session cookies configuration
type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	StoreName  string        `mapstructure:"store_name"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	Secret     string        `mapstructure:"secret"`
	Secure     bool          `mapstructure:"secure"`
	Domain     string        `mapstructure:"domain"`
	TokenFile  string        `mapstructure:"token_file"`
}

// CacheConfig holds query cache configuration
type CacheConfig struct {
	StaleTime   time.Duration `mapstructure:"stale_time"`
	MeStaleTime time.Duration `mapstructure:"me_stale_time"`
	IdleTTL     time.Duration `mapstructure:"idle_ttl"`
}

// NotificationsConfig holds notification polling configuration
type NotificationsConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// DevBackendConfig configures the in-memory stand-in backend
type DevBackendConfig struct {
	Port      int           `mapstructure:"port"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Seed      bool          `mapstructure:"seed"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "TaskMaster Console")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8084/api")
	v.SetDefault("backend.auth_transport", TransportBearer)
	v.SetDefault("backend.cookie_name", "session")
	v.SetDefault("backend.timeout", "0s")

	// Session defaults
	v.SetDefault("session.cookie_name", "cni_session")
	v.SetDefault("session.store_name", "taskmaster-session")
	v.SetDefault("session.max_age", "168h") // 7 days
	v.SetDefault("session.secret", "")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.domain", "")
	v.SetDefault("session.token_file", "")

	// Cache defaults
	v.SetDefault("cache.stale_time", "0s")
	v.SetDefault("cache.me_stale_time", "1m")
	v.SetDefault("cache.idle_ttl", "30m")

	// Notification defaults
	v.SetDefault("notifications.poll_interval", "10s")

	// Dev backend defaults
	v.SetDefault("devbackend.port", 8084)
	v.SetDefault("devbackend.jwt_secret", "dev-backend-signing-key")
	v.SetDefault("devbackend.token_ttl", "168h")
	v.SetDefault("devbackend.seed", true)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.filename", "")

	// Security defaults
	v.SetDefault("security.cors_allowed_origins", "*")
	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "APP_NAME")
	v.BindEnv("app.version", "APP_VERSION")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("app.debug", "APP_DEBUG")

	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	v.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Backend
	v.BindEnv("backend.base_url", "BACKEND_BASE_URL", "API_BASE_URL")
	v.BindEnv("backend.auth_transport", "BACKEND_AUTH_TRANSPORT")
	v.BindEnv("backend.cookie_name", "BACKEND_COOKIE_NAME")
	v.BindEnv("backend.timeout", "BACKEND_TIMEOUT")

	// Session
	v.BindEnv("session.cookie_name", "SESSION_COOKIE_NAME")
	v.BindEnv("session.store_name", "SESSION_STORE_NAME")
	v.BindEnv("session.max_age", "SESSION_MAX_AGE")
	v.BindEnv("session.secret", "SESSION_SECRET")
	v.BindEnv("session.secure", "SESSION_SECURE")
	v.BindEnv("session.domain", "SESSION_DOMAIN")
	v.BindEnv("session.token_file", "SESSION_TOKEN_FILE")

	// Cache
	v.BindEnv("cache.stale_time", "CACHE_STALE_TIME")
	v.BindEnv("cache.me_stale_time", "CACHE_ME_STALE_TIME")
	v.BindEnv("cache.idle_ttl", "CACHE_IDLE_TTL")

	// Notifications
	v.BindEnv("notifications.poll_interval", "NOTIFICATIONS_POLL_INTERVAL")

	// Dev backend
	v.BindEnv("devbackend.port", "DEVBACKEND_PORT")
	v.BindEnv("devbackend.jwt_secret", "DEVBACKEND_JWT_SECRET")
	v.BindEnv("devbackend.token_ttl", "DEVBACKEND_TOKEN_TTL")
	v.BindEnv("devbackend.seed", "DEVBACKEND_SEED")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")
	v.BindEnv("logger.output", "LOG_OUTPUT")
	v.BindEnv("logger.filename", "LOG_FILENAME")

	// Security
	v.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	v.BindEnv("metrics.enabled", "ENABLE_METRICS")
}

func validateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend base url %q must be an absolute http(s) url", cfg.Backend.BaseURL)
	}

	switch cfg.Backend.AuthTransport {
	case TransportBearer:
	case TransportCookie:
		if cfg.Backend.CookieName == "" {
			return fmt.Errorf("backend cookie name is required for the cookie transport")
		}
	default:
		return fmt.Errorf("backend auth transport must be %q or %q", TransportBearer, TransportCookie)
	}

	if cfg.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}

	if cfg.Session.MaxAge <= 0 {
		return fmt.Errorf("session max age must be positive")
	}

	if cfg.App.IsProduction() && len(cfg.Session.Secret) < 32 {
		return fmt.Errorf("session secret must be at least 32 characters in production")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Notifications.PollInterval <= 0 {
		return fmt.Errorf("notification poll interval must be positive")
	}

	return nil
}

// Addr returns the listen address
func (cfg *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// UsesCookie reports whether the backend credential travels as a cookie
func (cfg *BackendConfig) UsesCookie() bool {
	return cfg.AuthTransport == TransportCookie
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
