package config

import (
	"fmt"
	"time"

	yamlenv "github.com/ifuryst/go-yaml-env"
	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/pkg/logger"
)

type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Database  DatabaseConfig            `yaml:"database"`
	Redis     RedisConfig               `yaml:"redis"`
	Logger    logger.Config             `yaml:"logger"`
	Auth      AuthConfig                `yaml:"auth"`
	Sync      SyncConfig                `yaml:"sync"`
	Scheduler SchedulerConfig           `yaml:"scheduler"`
	Cache     CacheConfig               `yaml:"cache"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	Host      string `yaml:"host"`
	Mode      string `yaml:"mode"`
	CertFile  string `yaml:"cert_file"`
	KeyFile   string `yaml:"key_file"`
	PublicURL string `yaml:"public_url"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type AuthConfig struct {
	CronSecret string `yaml:"cron_secret"`
	JWTSecret  string `yaml:"jwt_secret"`
	JWTIssuer  string `yaml:"jwt_issuer"`
}

type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type SyncConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	BatchDelay     time.Duration `yaml:"batch_delay"`
	MaxExecution   time.Duration `yaml:"max_execution"`
	LookbackDays   int           `yaml:"lookback_days"`
	MinInterval    time.Duration `yaml:"min_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Retry          RetryConfig   `yaml:"retry"`
	Platforms      []string      `yaml:"platforms"`
}

// EnabledPlatforms returns the configured platforms, or all of them when none are listed
func (c SyncConfig) EnabledPlatforms() ([]models.Platform, error) {
	if len(c.Platforms) == 0 {
		return append([]models.Platform(nil), models.AllPlatforms...), nil
	}
	out := make([]models.Platform, 0, len(c.Platforms))
	for _, name := range c.Platforms {
		p, err := models.ParsePlatform(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type SchedulerConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Spec                 string        `yaml:"spec"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"`
	HistoryRetentionDays int           `yaml:"history_retention_days"`
}

type CacheTTLConfig struct {
	Realtime  time.Duration `yaml:"realtime"`
	Dashboard time.Duration `yaml:"dashboard"`
	Portfolio time.Duration `yaml:"portfolio"`
}

type CacheConfig struct {
	Backend string         `yaml:"backend"` // postgres or redis
	TTL     CacheTTLConfig `yaml:"ttl"`
}

// TTLs maps each cache data type to its time to live
func (c CacheConfig) TTLs() map[string]time.Duration {
	return map[string]time.Duration{
		models.DataTypeRealtime:  c.TTL.Realtime,
		models.DataTypeDashboard: c.TTL.Dashboard,
		models.DataTypePortfolio: c.TTL.Portfolio,
	}
}

type ProviderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

var defaultBaseURLs = map[models.Platform]string{
	models.PlatformAnalytics:     "https://analyticsdata.googleapis.com",
	models.PlatformSearchConsole: "https://searchconsole.googleapis.com",
	models.PlatformYouTube:       "https://youtubeanalytics.googleapis.com",
	models.PlatformLinkedIn:      "https://api.linkedin.com",
}

// Provider returns the settings for one platform with defaults filled in
func (c *Config) Provider(p models.Platform) ProviderConfig {
	pc := c.Providers[string(p)]
	if pc.BaseURL == "" {
		pc.BaseURL = defaultBaseURLs[p]
	}
	if pc.RequestsPerSecond <= 0 {
		pc.RequestsPerSecond = 5
	}
	if pc.Burst <= 0 {
		pc.Burst = 1
	}
	return pc
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if cfg.Cache.Backend != "postgres" && cfg.Cache.Backend != "redis" {
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if cfg.Cache.Backend == "redis" && !cfg.Redis.Enabled {
		return nil, fmt.Errorf("cache backend redis requires redis.enabled")
	}
	if _, err := cfg.Sync.EnabledPlatforms(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills zero values. Exported so commands and tests can build a
// config without a file.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5334
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Auth.JWTIssuer == "" {
		cfg.Auth.JWTIssuer = "agencylens"
	}

	s := &cfg.Sync
	if s.BatchSize <= 0 {
		s.BatchSize = 3
	}
	if s.BatchDelay < 0 {
		s.BatchDelay = 0
	} else if s.BatchDelay == 0 {
		s.BatchDelay = time.Second
	}
	if s.MaxExecution <= 0 {
		s.MaxExecution = 270 * time.Second
	}
	if s.LookbackDays <= 0 {
		s.LookbackDays = 90
	}
	if s.MinInterval == 0 {
		s.MinInterval = time.Hour
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = 30 * time.Second
	}
	if s.Retry.MaxAttempts <= 0 {
		s.Retry.MaxAttempts = 3
	}
	if s.Retry.InitialDelay <= 0 {
		s.Retry.InitialDelay = time.Second
	}
	if s.Retry.BackoffFactor < 1 {
		s.Retry.BackoffFactor = 2
	}

	if cfg.Scheduler.Spec == "" {
		cfg.Scheduler.Spec = "0 */6 * * *"
	}
	if cfg.Scheduler.HousekeepingInterval <= 0 {
		cfg.Scheduler.HousekeepingInterval = time.Hour
	}
	if cfg.Scheduler.HistoryRetentionDays <= 0 {
		cfg.Scheduler.HistoryRetentionDays = 90
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "postgres"
	}
	if cfg.Cache.TTL.Realtime <= 0 {
		cfg.Cache.TTL.Realtime = 30 * time.Second
	}
	if cfg.Cache.TTL.Dashboard <= 0 {
		cfg.Cache.TTL.Dashboard = 6 * time.Hour
	}
	if cfg.Cache.TTL.Portfolio <= 0 {
		cfg.Cache.TTL.Portfolio = 15 * time.Minute
	}
}
