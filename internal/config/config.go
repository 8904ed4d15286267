package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dumall/reconcile/internal/logging"
)

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	PoolSize int    `yaml:"pool_size"`
}

type MySQLConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// Duration accepts YAML strings like "500ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type CheckoutConfig struct {
	PaymentDelay Duration `yaml:"payment_delay"`
	FailureRate  float64  `yaml:"failure_rate"`
	ForceSuccess bool     `yaml:"force_success"`
}

type Config struct {
	HTTPAddr  string         `yaml:"http_addr"`
	WriteMode string         `yaml:"write_mode"` // faithful or versioned
	Workers   int            `yaml:"workers"`
	Redis     RedisConfig    `yaml:"redis"`
	MySQL     MySQLConfig    `yaml:"mysql"`
	Checkout  CheckoutConfig `yaml:"checkout"`
	Log       logging.Config `yaml:"log"`
}

func Default() Config {
	return Config{
		HTTPAddr:  ":8080",
		WriteMode: "faithful",
		Workers:   4,
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			PoolSize: 100,
		},
		MySQL: MySQLConfig{
			Enabled: false,
			DSN:     "root:root@tcp(localhost:3306)/dumall?parseTime=true",
		},
		Checkout: CheckoutConfig{
			PaymentDelay: Duration(2 * time.Second),
			FailureRate:  0.2,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads the YAML file when path is non-empty and applies DUMALL_* env
// overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("DUMALL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("DUMALL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DUMALL_MYSQL_DSN"); v != "" {
		cfg.MySQL.DSN = v
		cfg.MySQL.Enabled = true
	}
	if v := os.Getenv("DUMALL_WRITE_MODE"); v != "" {
		cfg.WriteMode = v
	}

	if cfg.WriteMode != "faithful" && cfg.WriteMode != "versioned" {
		return cfg, fmt.Errorf("invalid write_mode %q", cfg.WriteMode)
	}
	return cfg, nil
}
