package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
	Shopify   ShopifyConfig
	Maya      MayaConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string `env:"ESIM_APP_PORT" validate:"required,numeric"`
}

// IsProduction reports whether the app runs in the production environment
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	// MaxWebhookBytes caps the webhook body; larger deliveries get 413.
	MaxWebhookBytes int64 `env:"ESIM_HTTP_MAX_WEBHOOK_BYTES" validate:"gt=0"`
	TrustedProxies  []string
	// CronSecret, when set, must be presented as a bearer token on the sync endpoint.
	CronSecret string
}

// SchedulerConfig holds the in-process catalog sync scheduler configuration
type SchedulerConfig struct {
	Enabled          bool
	SyncCronSchedule string
	JobTimeout       time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled               bool
	CollectorEndpoint     string
	SamplingRatio         float64 `env:"ESIM_TELEMETRY_SAMPLING_RATIO" validate:"gte=0,lte=1"`
	ServiceName           string
	// Insecure disables TLS to the collector (development only)
	Insecure              bool
	MetricsExportInterval time.Duration
}

// ShopifyConfig holds the storefront credentials
type ShopifyConfig struct {
	StoreURL       string `env:"SHOPIFY_STORE_URL" validate:"required"`
	AccessToken    string `env:"SHOPIFY_ACCESS_TOKEN" validate:"required"`
	APISecretKey   string `env:"SHOPIFY_API_SECRET_KEY" validate:"required"`
	APIVersion     string
	TimeoutSeconds int    `env:"ESIM_SHOPIFY_TIMEOUT_SECONDS" validate:"gt=0"`
	MaxReadRetries int    `env:"ESIM_SHOPIFY_MAX_READ_RETRIES" validate:"gte=0"`
}

// MayaConfig holds the eSIM provider credentials
type MayaConfig struct {
	BaseURL        string `env:"MAYA_MOBILE_BASE_URL" validate:"required,url"`
	APIKey         string `env:"MAYA_MOBILE_API_KEY" validate:"required"`
	APISecret      string `env:"MAYA_MOBILE_API_SECRET" validate:"required"`
	TimeoutSeconds int    `env:"ESIM_MAYA_TIMEOUT_SECONDS" validate:"gt=0"`
	MaxReadRetries int    `env:"ESIM_MAYA_MAX_READ_RETRIES" validate:"gte=0"`
}

// DotEnvFile is the optional dotenv file read by Load
var DotEnvFile = ".env"

// integrationEnv binds config keys to the un-prefixed variables the
// integration credentials have always used.
var integrationEnv = map[string]string{
	"shopify.store_url":      "SHOPIFY_STORE_URL",
	"shopify.access_token":   "SHOPIFY_ACCESS_TOKEN",
	"shopify.api_secret_key": "SHOPIFY_API_SECRET_KEY",
	"shopify.api_version":    "SHOPIFY_API_VERSION",
	"maya.base_url":          "MAYA_MOBILE_BASE_URL",
	"maya.api_key":           "MAYA_MOBILE_API_KEY",
	"maya.api_secret":        "MAYA_MOBILE_API_SECRET",
	"http.cron_secret":       "CRON_SECRET",
}

// Load loads configuration from the environment, a dotenv file and config.toml.
// The process environment wins over .env, which never overrides it; both win
// over config.toml, then built-in defaults. Ambient settings use the ESIM_
// prefix and integration credentials use the names in integrationEnv.
func Load() (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	// Keys whose zero value is a valid setting get their defaults here
	// rather than in applyDefaults.
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("shopify.max_read_retries", 3)
	v.SetDefault("maya.max_read_retries", 3)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range integrationEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxWebhookBytes: v.GetInt64("http.max_webhook_bytes"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			CronSecret:      v.GetString("http.cron_secret"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          v.GetBool("scheduler.enabled"),
			SyncCronSchedule: v.GetString("scheduler.sync_cron_schedule"),
			JobTimeout:       v.GetDuration("scheduler.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
		},
		Shopify: ShopifyConfig{
			StoreURL:       v.GetString("shopify.store_url"),
			AccessToken:    v.GetString("shopify.access_token"),
			APISecretKey:   v.GetString("shopify.api_secret_key"),
			APIVersion:     v.GetString("shopify.api_version"),
			TimeoutSeconds: v.GetInt("shopify.timeout_seconds"),
			MaxReadRetries: v.GetInt("shopify.max_read_retries"),
		},
		Maya: MayaConfig{
			BaseURL:        v.GetString("maya.base_url"),
			APIKey:         v.GetString("maya.api_key"),
			APISecret:      v.GetString("maya.api_secret"),
			TimeoutSeconds: v.GetInt("maya.timeout_seconds"),
			MaxReadRetries: v.GetInt("maya.max_read_retries"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

// applyDefaults sets default values for any empty ambient config fields.
// Integration credentials have no defaults.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "esim-bridge"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.IsProduction() {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Fulfillment makes two sequential upstream calls inside one request.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 90 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxWebhookBytes == 0 {
		cfg.HTTP.MaxWebhookBytes = 1 << 20
	}

	if cfg.Scheduler.SyncCronSchedule == "" {
		cfg.Scheduler.SyncCronSchedule = "0 3 * * *"
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 15 * time.Minute
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}

	if cfg.Shopify.TimeoutSeconds == 0 {
		cfg.Shopify.TimeoutSeconds = 30
	}
	if cfg.Maya.TimeoutSeconds == 0 {
		cfg.Maya.TimeoutSeconds = 30
	}
}

var configValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if env := fld.Tag.Get("env"); env != "" {
			return env
		}
		return fld.Name
	})
	return v
}()

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.App.IsProduction() {
		if err := requireHTTPS("SHOPIFY_STORE_URL", c.Shopify.StoreURL); err != nil {
			return err
		}
		if err := requireHTTPS("MAYA_MOBILE_BASE_URL", c.Maya.BaseURL); err != nil {
			return err
		}
		if c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "url":
		return fe.Field() + " must be a valid URL"
	case "numeric":
		return fe.Field() + " must be numeric"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "lte":
		return fe.Field() + " must be at most " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// requireHTTPS rejects explicit http:// URLs. A bare host is accepted
// since the store client assumes https for it.
func requireHTTPS(name, raw string) error {
	if !strings.Contains(raw, "://") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%s must use https in production", name)
	}
	return nil
}
