package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port               string
	Environment        string
	SupabaseURL        string
	SupabaseDBURL      string
	SupabaseJWKSURL    string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	SupabaseServiceKey string // Service-role key for the admin user lookup API
	CORSOrigins        string
	TablePrefix        string
	AppBaseURL         string

	// Attachment blob storage (S3-compatible)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageSecure    bool

	// Signed-URL / suggestion cache
	RedisURL string

	// Outbound notification email
	SMTP SMTPConfig
}

// SMTPConfig holds the settings for the new-doubt notification mailer.
// An empty Host disables sending entirely.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// fileOverrides is the optional CONFIG_FILE yaml shape. Only settings that make
// sense to keep out of the environment are supported here; env vars win when both
// are set.
type fileOverrides struct {
	Port        string     `yaml:"port"`
	CORSOrigins string     `yaml:"cors_origins"`
	AppBaseURL  string     `yaml:"app_base_url"`
	SMTP        SMTPConfig `yaml:"smtp"`
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	supabaseURL := getEnv("SUPABASE_URL", "")

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        env,
		SupabaseURL:        supabaseURL,
		SupabaseDBURL:      getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL:    supabaseURL + "/auth/v1/.well-known/jwks.json",
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		CORSOrigins:        getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:        getTablePrefix(env),
		AppBaseURL:         getEnv("APP_BASE_URL", "http://localhost:3000"),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", ""),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", AttachmentsBucket),
		StorageSecure:    getEnv("STORAGE_SECURE", "true") == "true",

		RedisURL: getEnv("REDIS_URL", ""),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
			FromName: getEnv("SMTP_FROM_NAME", "Doubtabase"),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: config file %s ignored: %v\n", path, err)
		}
	}

	return cfg
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if os.Getenv("PORT") == "" && overrides.Port != "" {
		c.Port = overrides.Port
	}
	if os.Getenv("CORS_ORIGINS") == "" && overrides.CORSOrigins != "" {
		c.CORSOrigins = overrides.CORSOrigins
	}
	if os.Getenv("APP_BASE_URL") == "" && overrides.AppBaseURL != "" {
		c.AppBaseURL = overrides.AppBaseURL
	}
	if os.Getenv("SMTP_HOST") == "" && overrides.SMTP.Host != "" {
		c.SMTP = overrides.SMTP
		if c.SMTP.Port == "" {
			c.SMTP.Port = "587"
		}
		if c.SMTP.FromName == "" {
			c.SMTP.FromName = "Doubtabase"
		}
	}

	return nil
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
