package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"calsync/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Broker     BrokerConfig     `yaml:"broker"`
	Redis      RedisConfig      `yaml:"redis"`
	Google     GoogleConfig     `yaml:"google"`
	Sync       SyncConfig       `yaml:"sync"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type BrokerConfig struct {
	URL      string `yaml:"url"`
	Prefetch int    `yaml:"prefetch"`
}

type RedisConfig struct {
	Address        string `yaml:"address"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	PoolSize       int    `yaml:"pool_size"`
	MemoryFallback bool   `yaml:"memory_fallback"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	CalendarID   string `yaml:"calendar_id"`
	MaxQPS       int    `yaml:"max_qps"`
}

type SyncConfig struct {
	MaxRetries        int             `yaml:"max_retries"`
	RetryDelaySeconds int             `yaml:"retry_delay_seconds"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// Подгружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Broker.URL == "" {
		return errors.New("broker url is required")
	}

	if c.Redis.Address == "" {
		return errors.New("redis address is required")
	}

	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		return errors.New("google oauth client credentials are required")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Broker.Prefetch == 0 {
		c.Broker.Prefetch = models.DefaultPrefetch
	}

	if c.Google.CalendarID == "" {
		c.Google.CalendarID = "primary"
	}

	// Sync defaults
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = models.DefaultMaxRetries
	}
	if c.Sync.RetryDelaySeconds == 0 {
		c.Sync.RetryDelaySeconds = models.DefaultRetryDelaySeconds
	}
	if c.Sync.RateLimit.MaxRequests == 0 {
		c.Sync.RateLimit.MaxRequests = models.DefaultRateLimitRequests
	}
	if c.Sync.RateLimit.WindowSeconds == 0 {
		c.Sync.RateLimit.WindowSeconds = models.DefaultRateLimitWindowSeconds
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

// RetryDelay возвращает TTL очереди повторов
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Sync.RetryDelaySeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.Sync.RateLimit.WindowSeconds) * time.Second
}
