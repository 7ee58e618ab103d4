package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Forwarder ForwarderConfig `yaml:"forwarder"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the sqlite database file.
	Path        string `yaml:"path"`
	MaxRetries  int    `yaml:"max_retries"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type RedisConfig struct {
	// Addr empty disables the idempotency middleware.
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	Broker       string        `yaml:"broker"`
	Topic        string        `yaml:"topic"`
	GroupID      string        `yaml:"group_id"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ForwarderConfig struct {
	// BaseURL of the store the forwarder calls. Defaults to this server.
	BaseURL string `yaml:"base_url"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`

	// StoreExempt lists peer networks whose calls to the store routes skip the
	// limiter. The forwarder already charged the original client.
	StoreExempt []string `yaml:"store_exempt"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads .env (when present), builds the configuration from the
// environment and finally overlays the YAML file at path, if any.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")
	cfg := &Config{
		HTTP: HTTPConfig{
			Port:         port,
			ReadTimeout:  getDuration("HTTP_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("DB_DRIVER", DriverPostgres),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    os.Getenv("DB_PASSWORD"),
			Name:        getEnv("DB_NAME", "employees"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			Path:        getEnv("DB_PATH", "employees.db"),
			MaxRetries:  getInt("DB_MAX_RETRIES", 5),
			AutoMigrate: getBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Kafka: KafkaConfig{
			Broker:       os.Getenv("KAFKA_BROKER"),
			Topic:        getEnv("KAFKA_TOPIC", "employees.lifecycle.v1"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "employee-forwarder-audit"),
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", 3*time.Second),
		},
		Forwarder: ForwarderConfig{
			BaseURL: getEnv("FORWARDER_BASE_URL", "http://localhost:"+port),
		},
		RateLimit: RateLimitConfig{
			RPS:         getFloat("RATE_LIMIT_RPS", 20),
			Burst:       getInt("RATE_LIMIT_BURST", 40),
			StoreExempt: getList("RATE_LIMIT_STORE_EXEMPT", []string{"127.0.0.0/8", "::1/128"}),
		},
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.HTTP.Port == "" {
		return fmt.Errorf("http port is required")
	}
	if c.Forwarder.BaseURL == "" {
		return fmt.Errorf("forwarder base url is required")
	}
	if _, err := c.RateLimit.StoreExemptPrefixes(); err != nil {
		return err
	}
	return nil
}

func (c RateLimitConfig) StoreExemptPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.StoreExempt))
	for _, cidr := range c.StoreExempt {
		p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit exemption %q: %w", cidr, err)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return strings.Split(v, ",")
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
