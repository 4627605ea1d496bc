package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	HTTP      HTTPConfig      `yaml:"http"`
	Import    ImportConfig    `yaml:"import"`
	FileStore FileStoreConfig `yaml:"file_store"`
	TagCache  TagCacheConfig  `yaml:"tag_cache"`
	Log       LogConfig       `yaml:"log"`
	// DefaultLanguage is used when listing importers without a language filter.
	DefaultLanguage string `yaml:"default_language"`
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second per host
	Burst     int           `yaml:"burst"`
	Retry     RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// ImportConfig holds the runner tunables.
type ImportConfig struct {
	MaxErrors   int    `yaml:"max_errors"`
	MaxItems    int    `yaml:"max_items"`
	DelayErrors int    `yaml:"delay_errors"` // minutes
	Schedule    string `yaml:"schedule"`

	// ImporterTimeout bounds one importer within a tick. Negative disables it.
	ImporterTimeout time.Duration `yaml:"importer_timeout"`
}

// ErrorDelay is the pause applied to an importer after a failed run.
func (c ImportConfig) ErrorDelay() time.Duration {
	return time.Duration(c.DelayErrors) * time.Minute
}

type FileStoreConfig struct {
	Type  string           `yaml:"type"`
	Local LocalStoreConfig `yaml:"local"`
	S3    S3StoreConfig    `yaml:"s3"`
}

type LocalStoreConfig struct {
	Dir       string `yaml:"dir"`
	PublicURL string `yaml:"public_url"`
}

type S3StoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
	PublicURL string `yaml:"public_url"`
	PathStyle bool   `yaml:"path_style"`
}

type TagCacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "content_import"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "content_import.import"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "content_imported"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "ContentImport/1.0"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 2
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 4
	}
	if c.HTTP.Retry.MaxAttempts == 0 {
		c.HTTP.Retry.MaxAttempts = 3
	}
	if c.HTTP.Retry.InitialBackoff == 0 {
		c.HTTP.Retry.InitialBackoff = 1 * time.Second
	}
	if c.HTTP.Retry.MaxBackoff == 0 {
		c.HTTP.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Import.MaxErrors <= 0 {
		c.Import.MaxErrors = 13
	}
	if c.Import.MaxItems <= 0 {
		c.Import.MaxItems = 10
	}
	if c.Import.DelayErrors <= 0 {
		c.Import.DelayErrors = 120
	}
	if c.Import.Schedule == "" {
		c.Import.Schedule = "@every 1m"
	}
	if c.Import.ImporterTimeout == 0 {
		c.Import.ImporterTimeout = 5 * time.Minute
	}
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	if c.FileStore.Local.Dir == "" {
		c.FileStore.Local.Dir = "data/files"
	}
	if c.FileStore.S3.Region == "" {
		c.FileStore.S3.Region = "us-east-1"
	}
	if c.TagCache.Size == 0 {
		c.TagCache.Size = 1024
	}
	if c.TagCache.TTL == 0 {
		c.TagCache.TTL = 10 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
}
