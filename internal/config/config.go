package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	AI       AIConfig       `yaml:"ai"`
	Billing  BillingConfig  `yaml:"billing"`
	Workers  WorkersConfig  `yaml:"workers"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Conn               string        `yaml:"conn"`
	Name               string        `yaml:"name"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
	MigrationsPath     string        `yaml:"migrations_path"`
}

type RedisConfig struct {
	URL                 string `yaml:"url"`
	ExtractionQueue     string `yaml:"extraction_queue"`
	DLQSuffix           string `yaml:"dlq_suffix"`
	NotificationChannel string `yaml:"notification_channel"`
}

type StorageConfig struct {
	Driver        string      `yaml:"driver"`
	Local         LocalConfig `yaml:"local"`
	S3            S3Config    `yaml:"s3"`
	MaxUploadSize int64       `yaml:"max_upload_size"`
}

type LocalConfig struct {
	Root          string `yaml:"root"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type AIConfig struct {
	Provider     string        `yaml:"provider"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`
	OpenAIAPIKey string        `yaml:"openai_api_key"`
	OpenAIModel  string        `yaml:"openai_model"`
	Timeout      time.Duration `yaml:"timeout"`
}

type BillingConfig struct {
	UnlockCost int64        `yaml:"unlock_cost"`
	Packs      []PackConfig `yaml:"packs"`
}

type PackConfig struct {
	Name    string          `yaml:"name"`
	Credits int64           `yaml:"credits"`
	Price   decimal.Decimal `yaml:"price"`
}

type WorkersConfig struct {
	Extraction ExtractionWorkerConfig `yaml:"extraction"`
}

type ExtractionWorkerConfig struct {
	Count          int           `yaml:"count"`
	MaxAttempts    int           `yaml:"max_attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	Inline         bool          `yaml:"inline"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Name:               "postgres",
			MaxConnections:     20,
			MaxIdleConnections: 5,
			ConnectionLifetime: 30 * time.Minute,
			MigrationsPath:     "file://migrations",
		},
		Redis: RedisConfig{
			URL:                 "redis://localhost:6379/0",
			ExtractionQueue:     "extractions",
			DLQSuffix:           ":dlq",
			NotificationChannel: "notifications",
		},
		Storage: StorageConfig{
			Driver: "local",
			Local: LocalConfig{
				Root:          "storage",
				PublicBaseURL: "/storage",
			},
			MaxUploadSize: 10 << 20,
		},
		AI: AIConfig{
			Provider:    "mock",
			GeminiModel: "gemini-1.5-flash",
			OpenAIModel: "gpt-4o",
			Timeout:     120 * time.Second,
		},
		Billing: BillingConfig{
			UnlockCost: 50,
			Packs: []PackConfig{
				{Name: "basic", Credits: 50, Price: decimal.RequireFromString("50.00")},
				{Name: "pro", Credits: 150, Price: decimal.RequireFromString("120.00")},
				{Name: "premium", Credits: 400, Price: decimal.RequireFromString("300.00")},
			},
		},
		Workers: WorkersConfig{
			Extraction: ExtractionWorkerConfig{
				Count:          2,
				MaxAttempts:    3,
				AttemptTimeout: 5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads CONFIG_PATH (config.yaml by default) over Default and applies
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	config := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SERVER_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := getenv("POSTGRES_CONN"); v != "" {
		c.Database.Conn = v
	}
	if v := getenv("POSTGRES_DATABASE"); v != "" {
		c.Database.Name = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.AI.GeminiAPIKey = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.AI.OpenAIAPIKey = v
	}
	if v := getenv("AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Billing.UnlockCost <= 0 {
		return fmt.Errorf("billing.unlock_cost must be positive, got %d", c.Billing.UnlockCost)
	}
	if c.Workers.Extraction.MaxAttempts < 1 {
		return fmt.Errorf("workers.extraction.max_attempts must be at least 1, got %d", c.Workers.Extraction.MaxAttempts)
	}
	if c.Workers.Extraction.AttemptTimeout <= 0 {
		return errors.New("workers.extraction.attempt_timeout must be positive")
	}
	switch c.Storage.Driver {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.AI.Provider {
	case "mock", "gemini", "openai":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}

	return nil
}
