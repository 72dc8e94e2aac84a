package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore, e.g. PHISHGUARD_DATABASE__HOST -> database.host.
const EnvPrefix = "PHISHGUARD_"

// AppConfig holds every runtime setting. Secrets have no defaults and must come
// from config/config.json, a .env file or the environment.
type AppConfig struct {
	App           AppSection          `koanf:"app"`
	Database      DatabaseSection     `koanf:"database"`
	Redis         RedisSection        `koanf:"redis"`
	Log           LogSection          `koanf:"log"`
	Auth          AuthSection         `koanf:"auth"`
	SMTP          SMTPSection         `koanf:"smtp"`
	Storage       StorageSection      `koanf:"storage"`
	Notifications NotificationSection `koanf:"notifications"`
	Register      RegisterSection     `koanf:"register"`
	OAuth         OAuthSection        `koanf:"oauth"`
}

type AppSection struct {
	Port               string   `koanf:"port" validate:"required"`
	GinMode            string   `koanf:"gin_mode" validate:"oneof=debug release test"`
	GinLogPath         string   `koanf:"gin_log_path"`
	RateLimitPerMinute int      `koanf:"rate_limit_per_minute" validate:"gte=1"`
	AllowedOrigins     []string `koanf:"allowed_origins"`
	// InternalAPIKey guards the service-to-service notification endpoints.
	// Empty disables them.
	InternalAPIKey string `koanf:"internal_api_key"`
}

type DatabaseSection struct {
	Driver                 string `koanf:"driver" validate:"oneof=mysql postgres sqlite"`
	DSN                    string `koanf:"dsn"`
	Host                   string `koanf:"host"`
	Port                   string `koanf:"port"`
	User                   string `koanf:"user"`
	Password               string `koanf:"password"`
	Name                   string `koanf:"name"`
	SSLMode                string `koanf:"ssl_mode"`
	MaxOpenConns           int    `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `koanf:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// RedisSection configures the shared cache. An empty Host disables Redis and
// every caller falls back to in-process state.
type RedisSection struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	DB       int    `koanf:"db"`
	Password string `koanf:"password"`
}

type LogSection struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error silent"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

type AuthSection struct {
	JWTSecret          string   `koanf:"jwt_secret" validate:"required,min=16"`
	AccessTokenMinutes int      `koanf:"access_token_minutes" validate:"gte=1"`
	RefreshTokenHours  int      `koanf:"refresh_token_hours" validate:"gte=1"`
	AdminEmails        []string `koanf:"admin_emails"`
}

type SMTPSection struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
	TLS      bool   `koanf:"tls"`
}

// Enabled reports whether outgoing mail is configured.
func (s SMTPSection) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type StorageSection struct {
	Driver         string `koanf:"driver" validate:"oneof=local minio"`
	LocalDir       string `koanf:"local_dir"`
	PublicPrefix   string `koanf:"public_prefix"`
	MaxUploadMB    int    `koanf:"max_upload_mb" validate:"gte=1"`
	MinioEndpoint  string `koanf:"minio_endpoint" validate:"required_if=Driver minio"`
	MinioAccessKey string `koanf:"minio_access_key"`
	MinioSecretKey string `koanf:"minio_secret_key"`
	MinioBucket    string `koanf:"minio_bucket" validate:"required_if=Driver minio"`
	MinioUseSSL    bool   `koanf:"minio_use_ssl"`
	MinioPublicURL string `koanf:"minio_public_url"`
}

type NotificationSection struct {
	TrendingThreshold      int `koanf:"trending_threshold" validate:"gte=1"`
	RetentionDays          int `koanf:"retention_days" validate:"gte=0,lte=365"`
	CleanupIntervalMinutes int `koanf:"cleanup_interval_minutes" validate:"gte=1"`
}

type RegisterSection struct {
	CaptchaEnabled        bool `koanf:"captcha_enabled"`
	MaxPerIPPerDay        int  `koanf:"max_per_ip_per_day"`
	AttemptCooldownSec    int  `koanf:"attempt_cooldown_sec"`
	FailedMaxPerIPPerHour int  `koanf:"failed_max_per_ip_per_hour"`
	TempBanMinutes        int  `koanf:"temp_ban_minutes"`
}

type OAuthSection struct {
	GitHubClientID     string `koanf:"github_client_id"`
	GitHubClientSecret string `koanf:"github_client_secret"`
	GoogleClientID     string `koanf:"google_client_id"`
	GoogleClientSecret string `koanf:"google_client_secret"`
	RedirectBase       string `koanf:"redirect_base"`
}

// Providers lists the OAuth providers that have credentials configured.
func (o OAuthSection) Providers() []string {
	out := []string{}
	if o.GitHubClientID != "" && o.GitHubClientSecret != "" {
		out = append(out, "github")
	}
	if o.GoogleClientID != "" && o.GoogleClientSecret != "" {
		out = append(out, "google")
	}
	return out
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load reads config/config.json and the environment once and caches the result.
// It exits the process when the configuration is invalid.
func Load() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()

	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	Use(c)
	return c
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Use installs c as the active configuration.
func Use(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// LoadFrom builds a configuration with precedence
// defaults -> JSON file (optional) -> .env -> environment variables.
func LoadFrom(path string) (AppConfig, error) {
	// .env never overrides variables already present in the process.
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), json.Parser()); err != nil {
				return AppConfig{}, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read environment: %w", err)
	}

	out := Defaults()
	if err := k.Unmarshal("", &out); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	applyLegacyEnv(&out)

	if err := Validate(out); err != nil {
		return AppConfig{}, err
	}
	return out, nil
}

// Defaults returns the baseline configuration.
func Defaults() AppConfig {
	return AppConfig{
		App: AppSection{
			Port:               "8080",
			GinMode:            "release",
			GinLogPath:         "logs/gin.log",
			RateLimitPerMinute: 120,
			AllowedOrigins:     []string{"*"},
		},
		Database: DatabaseSection{
			Driver:                 "mysql",
			Host:                   "127.0.0.1",
			Port:                   "3306",
			User:                   "root",
			Name:                   "phishguard",
			SSLMode:                "disable",
			MaxOpenConns:           20,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
		},
		Redis: RedisSection{Port: 6379},
		Log: LogSection{
			Level:      "info",
			Path:       "logs/app.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Auth: AuthSection{
			AccessTokenMinutes: 60,
			RefreshTokenHours:  168,
		},
		SMTP: SMTPSection{Port: 587, FromName: "PhishGuard"},
		Storage: StorageSection{
			Driver:       "local",
			LocalDir:     filepath.Join("public", "uploads"),
			PublicPrefix: "/public/uploads",
			MaxUploadMB:  10,
		},
		Notifications: NotificationSection{
			TrendingThreshold:      10,
			RetentionDays:          0,
			CleanupIntervalMinutes: 60,
		},
		Register: RegisterSection{
			MaxPerIPPerDay:        5,
			AttemptCooldownSec:    10,
			FailedMaxPerIPPerHour: 20,
			TempBanMinutes:        60,
		},
		OAuth: OAuthSection{RedirectBase: "http://localhost:8080"},
	}
}

// applyLegacyEnv maps the plain variable names used by older deployments.
func applyLegacyEnv(c *AppConfig) {
	legacy := map[string]*string{
		"DB_HOST":     &c.Database.Host,
		"DB_PORT":     &c.Database.Port,
		"DB_USER":     &c.Database.User,
		"DB_PASSWORD": &c.Database.Password,
		"DB_NAME":     &c.Database.Name,
		"JWT_SECRET":  &c.Auth.JWTSecret,
		"APP_PORT":    &c.App.Port,
	}
	for key, dst := range legacy {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}

var validate = validator.New()

// Validate checks struct constraints on c.
func Validate(c AppConfig) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}
