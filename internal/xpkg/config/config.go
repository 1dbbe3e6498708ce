package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort             = 3000
	DefaultStorePath        = "weighline.db"
	DefaultFullCleanMinutes = 72
	DefaultTickInterval     = time.Second
	DefaultLookupTimeout    = 10 * time.Second
	DefaultLogLevel         = "INFO"
)

type Config struct {
	DB     *Postgres `yaml:"database"`
	RMQ    *RabbitMQ `yaml:"rabbitmq"`
	Store  Store     `yaml:"store"`
	Server Server    `yaml:"server"`
	Bins   Bins      `yaml:"bins"`
	Lookup Lookup    `yaml:"lookup"`
	Log    Log       `yaml:"log"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DSN builds the connection string understood by pgx.
func (p *Postgres) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
	)
}

type RabbitMQ struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	VHost    string `yaml:"vhost"`
}

// Enabled reports whether a broker is configured at all.
// Without one, notifications are only written to the log.
func (r *RabbitMQ) Enabled() bool {
	return r != nil && r.Host != ""
}

func (r *RabbitMQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}

type Store struct {
	Path string `yaml:"path"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Bins struct {
	FullCleanMinutes int           `yaml:"full_clean_minutes"`
	TickInterval     time.Duration `yaml:"tick_interval"`
}

type Lookup struct {
	Timeout time.Duration `yaml:"timeout"`
}

type Log struct {
	Level string `yaml:"level"`
}

// LoadConfig reads the yaml file at configPath, applies environment
// overrides and defaults, and validates the result.
// A missing file is not an error: env and defaults are enough to start.
func LoadConfig(configPath string) (*Config, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBrokerConfig is LoadConfig for processes that only talk to RabbitMQ.
func LoadBrokerConfig(configPath string) (*Config, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if !cfg.RMQ.Enabled() {
		return nil, errors.New("rabbitmq host is required")
	}
	return cfg, nil
}

// LogLevel reads only the log level, so a logger can exist before the rest
// of the config is validated. Errors fall back to the default level.
func LogLevel(configPath string) string {
	cfg, err := load(configPath)
	if err != nil {
		return DefaultLogLevel
	}
	return cfg.Log.Level
}

func load(configPath string) (*Config, error) {
	cfg := &Config{
		DB:  &Postgres{},
		RMQ: &RabbitMQ{},
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}
	if cfg.DB == nil {
		cfg.DB = &Postgres{}
	}
	if cfg.RMQ == nil {
		cfg.RMQ = &RabbitMQ{}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", c.Server.Port)
	}
	if c.Bins.FullCleanMinutes <= 0 {
		return fmt.Errorf("full clean minutes must be positive: %d", c.Bins.FullCleanMinutes)
	}
	if c.Bins.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive: %s", c.Bins.TickInterval)
	}
	if c.Lookup.Timeout <= 0 {
		return fmt.Errorf("lookup timeout must be positive: %s", c.Lookup.Timeout)
	}
	if c.Store.Path == "" {
		return errors.New("store path is empty")
	}
	if c.DB.Host == "" || c.DB.Database == "" {
		return errors.New("database host and name are required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DB.Host = getEnv("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnv("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = getEnv("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = getEnv("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Database = getEnv("POSTGRES_DBNAME", cfg.DB.Database)

	cfg.RMQ.Host = getEnv("RABBITMQ_HOST", cfg.RMQ.Host)
	cfg.RMQ.Port = getEnv("RABBITMQ_PORT", cfg.RMQ.Port)
	cfg.RMQ.User = getEnv("RABBITMQ_USER", cfg.RMQ.User)
	cfg.RMQ.Password = getEnv("RABBITMQ_PASSWORD", cfg.RMQ.Password)
	cfg.RMQ.VHost = getEnv("RABBITMQ_VHOST", cfg.RMQ.VHost)

	cfg.Store.Path = getEnv("WEIGHLINE_STORE_PATH", cfg.Store.Path)
	cfg.Log.Level = getEnv("WEIGHLINE_LOG_LEVEL", cfg.Log.Level)
	if port, err := strconv.Atoi(os.Getenv("WEIGHLINE_PORT")); err == nil {
		cfg.Server.Port = port
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DB.Port == "" {
		cfg.DB.Port = "5432"
	}
	if cfg.RMQ.Host != "" && cfg.RMQ.Port == "" {
		cfg.RMQ.Port = "5672"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Bins.FullCleanMinutes == 0 {
		cfg.Bins.FullCleanMinutes = DefaultFullCleanMinutes
	}
	if cfg.Bins.TickInterval == 0 {
		cfg.Bins.TickInterval = DefaultTickInterval
	}
	if cfg.Lookup.Timeout == 0 {
		cfg.Lookup.Timeout = DefaultLookupTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
