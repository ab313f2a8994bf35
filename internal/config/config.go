package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host        string   `yaml:"host"`
		Port        int      `yaml:"port"`
		PortRetries int      `yaml:"port_retries"` // сколько следующих портов пробовать, если занят
		Env         string   `yaml:"env"`
		LogLevel    string   `yaml:"log_level"`
		BaseURL     string   `yaml:"base_url"` // публичный адрес фронтенда/API для ссылок в письмах
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		Driver          string        `yaml:"driver"` // postgres | mysql
		DSN             string        `yaml:"url"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		SlowQuery       time.Duration `yaml:"slow_query"`
		AutoMigrate     bool          `yaml:"auto_migrate"`
	} `yaml:"database"`

	JWT struct {
		Secret    string        `yaml:"secret"`
		ExpiresIn time.Duration `yaml:"expires_in"`
	} `yaml:"jwt"`

	Auth struct {
		// Только для демо: вернуть токен сброса пароля в ответе API
		ExposeResetToken bool          `yaml:"expose_reset_token"`
		ResetTokenTTL    time.Duration `yaml:"reset_token_ttl"`
	} `yaml:"auth"`

	Plans struct {
		FreeCVLimit int `yaml:"free_cv_limit"`
	} `yaml:"plans"`

	Webhook struct {
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`

	Redis struct {
		URL string        `yaml:"url"`
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Email struct {
		Provider       string `yaml:"provider"` // smtp | sendgrid | none
		SMTPHost       string `yaml:"smtp_host"`
		SMTPPort       int    `yaml:"smtp_port"`
		SMTPUsername   string `yaml:"smtp_user"`
		SMTPPassword   string `yaml:"smtp_password"`
		SendGridAPIKey string `yaml:"sendgrid_api_key"`
		FromEmail      string `yaml:"from_email"`
		FromName       string `yaml:"from_name"`
		UseTLS         bool   `yaml:"use_tls"`
		TemplatesDir   string `yaml:"templates_dir"`
	} `yaml:"email"`

	Storage struct {
		Type       string `yaml:"type"`        // local, s3, cloudflare_r2
		BasePath   string `yaml:"base_path"`   // For local storage
		BaseURL    string `yaml:"base_url"`    // Public URL base
		Bucket     string `yaml:"bucket"`      // For S3/R2
		Region     string `yaml:"region"`      // For S3
		AccessKey  string `yaml:"access_key"`  // For S3/R2
		SecretKey  string `yaml:"secret_key"`  // For S3/R2
		Endpoint   string `yaml:"endpoint"`    // For R2 or custom S3
		UseSSL     bool   `yaml:"use_ssl"`     // For S3/R2
		PublicRead bool   `yaml:"public_read"` // Make files public
	} `yaml:"storage"`

	PDF struct {
		Disabled      bool          `yaml:"disabled"`
		ChromePath    string        `yaml:"chrome_path"`
		Timeout       time.Duration `yaml:"timeout"`
		MaxConcurrent int           `yaml:"max_concurrent"`
	} `yaml:"pdf"`

	Scraper struct {
		UserAgent string        `yaml:"user_agent"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"scraper"`

	Workers struct {
		SubscriptionInterval time.Duration `yaml:"subscription_interval"`
	} `yaml:"workers"`
}

var AppConfig *Config

// LoadConfig читает config.yaml (если есть), затем перекрывает значения из
// переменных окружения и проставляет значения по умолчанию.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if f, err := os.Open(configPath); err == nil {
		log.Printf("Loading configuration from %s", configPath)
		decodeErr := yaml.NewDecoder(f).Decode(cfg)
		f.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", configPath, decodeErr)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open config file at %s: %w", configPath, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

// MustLoad - LoadConfig, который завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		return MustLoad()
	}
	return AppConfig
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	var missing []string
	if c.Database.DSN == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Plans.FreeCVLimit < 0 {
		return fmt.Errorf("free_cv_limit must not be negative")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Env, "SERVER_ENV")
	setString(&cfg.Server.Host, "HOST")
	setInt(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setInt(&cfg.Server.PortRetries, "PORT_RETRIES")
	setString(&cfg.Server.LogLevel, "LOG_LEVEL")
	setString(&cfg.Server.BaseURL, "APP_BASE_URL")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setBool(&cfg.Database.AutoMigrate, "DB_AUTO_MIGRATE")

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setDuration(&cfg.JWT.ExpiresIn, "JWT_EXPIRES_IN")

	setBool(&cfg.Auth.ExposeResetToken, "EXPOSE_RESET_TOKEN")
	setInt(&cfg.Plans.FreeCVLimit, "FREE_CV_LIMIT")
	setString(&cfg.Webhook.Secret, "WEBHOOK_SECRET")

	setString(&cfg.Redis.URL, "REDIS_URL")
	setDuration(&cfg.Redis.TTL, "REDIS_TTL")

	setString(&cfg.Email.Provider, "EMAIL_PROVIDER")
	setString(&cfg.Email.SMTPHost, "SMTP_HOST")
	setInt(&cfg.Email.SMTPPort, "SMTP_PORT")
	setString(&cfg.Email.SMTPUsername, "SMTP_USER")
	setString(&cfg.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&cfg.Email.SendGridAPIKey, "SENDGRID_API_KEY")
	setString(&cfg.Email.FromEmail, "EMAIL_FROM")
	setString(&cfg.Email.FromName, "EMAIL_FROM_NAME")

	setString(&cfg.Storage.Type, "STORAGE_TYPE")
	setString(&cfg.Storage.BasePath, "STORAGE_PATH")
	setString(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	setString(&cfg.Storage.Region, "STORAGE_REGION")
	setString(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")

	setString(&cfg.PDF.ChromePath, "CHROME_PATH")
	setBool(&cfg.PDF.Disabled, "PDF_DISABLED")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.PortRetries == 0 {
		cfg.Server.PortRetries = 10
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:3000"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Database.SlowQuery == 0 {
		cfg.Database.SlowQuery = 200 * time.Millisecond
	}

	if cfg.JWT.ExpiresIn == 0 {
		cfg.JWT.ExpiresIn = 7 * 24 * time.Hour
	}
	if cfg.Auth.ResetTokenTTL == 0 {
		cfg.Auth.ResetTokenTTL = time.Hour
	}
	if cfg.Plans.FreeCVLimit == 0 {
		cfg.Plans.FreeCVLimit = 2
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}

	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "none"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = "no-reply@cvbuilder.local"
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "CV Builder"
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./uploads"
	}
	if cfg.Storage.BaseURL == "" && cfg.Storage.Type == "local" {
		cfg.Storage.BaseURL = "/files"
	}

	if cfg.PDF.Timeout == 0 {
		cfg.PDF.Timeout = 60 * time.Second
	}
	if cfg.PDF.MaxConcurrent == 0 {
		cfg.PDF.MaxConcurrent = 2
	}

	if cfg.Scraper.UserAgent == "" {
		cfg.Scraper.UserAgent = "CVBuilderBot/1.0"
	}
	if cfg.Scraper.Timeout == 0 {
		cfg.Scraper.Timeout = 15 * time.Second
	}

	if cfg.Workers.SubscriptionInterval == 0 {
		cfg.Workers.SubscriptionInterval = time.Hour
	}
}

// --- env helpers ---

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		*dst = n
	} else {
		log.Printf("Ignoring invalid integer in %s: %q", key, v)
	}
}

func setBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
		*dst = b
	} else {
		log.Printf("Ignoring invalid boolean in %s: %q", key, v)
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
		*dst = d
	} else {
		log.Printf("Ignoring invalid duration in %s: %q", key, v)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
