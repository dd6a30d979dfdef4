package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Server   ServerConfig   `yaml:"server"`
	TTS      TTSConfig      `yaml:"tts"`
	Blob     BlobConfig     `yaml:"blob"`
	Fetch    FetchConfig    `yaml:"fetch"`
	LogLevel string         `yaml:"log_level"`
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

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type TTSConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	OutputURI string        `yaml:"output_uri"`
	Timeout   time.Duration `yaml:"timeout"`
}

type BlobConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type FetchConfig struct {
	Interval       time.Duration `yaml:"interval"`
	HealthInterval time.Duration `yaml:"health_interval"`
	Concurrency    int           `yaml:"concurrency"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	Retry          RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
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
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "podnews"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.TTS.Timeout == 0 {
		c.TTS.Timeout = 30 * time.Second
	}
	if c.Fetch.Interval == 0 {
		c.Fetch.Interval = 30 * time.Minute
	}
	if c.Fetch.HealthInterval == 0 {
		c.Fetch.HealthInterval = 10 * time.Minute
	}
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = 4
	}
	if c.Fetch.HTTPTimeout == 0 {
		c.Fetch.HTTPTimeout = 30 * time.Second
	}
	if c.Fetch.Retry.MaxAttempts == 0 {
		c.Fetch.Retry.MaxAttempts = 3
	}
	if c.Fetch.Retry.InitialBackoff == 0 {
		c.Fetch.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Fetch.Retry.MaxBackoff == 0 {
		c.Fetch.Retry.MaxBackoff = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
