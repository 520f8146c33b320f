package config

import (
	"errors"
	"fmt"
	"os"

	"velorent/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	Rental     RentalConfig     `yaml:"rental"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Bikes      []models.Bike    `yaml:"bikes"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type PaymentConfig struct {
	StripeKey     string `yaml:"stripe_key"`
	PaymentMethod string `yaml:"payment_method"`
	Currency      string `yaml:"currency"`
}

type RentalConfig struct {
	MaxBookingDays     int   `yaml:"max_booking_days"`
	HelmetFeeCents     int64 `yaml:"helmet_fee_cents"`
	WorkerPollSeconds  int   `yaml:"worker_poll_seconds"`
	RateLimitAttempts  int   `yaml:"rate_limit_attempts"`
	RateLimitWindowSec int   `yaml:"rate_limit_window_sec"`
	LeaderboardSize    int   `yaml:"leaderboard_size"`
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

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled        bool           `yaml:"enabled"`
	HeaderAPIKey   string         `yaml:"header_api_key"`
	HeaderRenterID string         `yaml:"header_renter_id"`
	APIKeys        []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func Load(configPath string) (*Config, error) {
	// .env подхватывается, если существует
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
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return ValidateBikes(c.Bikes)
}

func ValidateBikes(bikes []models.Bike) error {
	bikeIDs := make(map[string]bool)
	for _, bike := range bikes {
		if bike.ID == "" {
			return fmt.Errorf("bike '%s' has empty ID", bike.Name)
		}
		if bikeIDs[bike.ID] {
			return fmt.Errorf("duplicate bike ID found: %s", bike.ID)
		}
		if !models.ValidGeometry(bike.Geometry) {
			return fmt.Errorf("bike '%s' has unknown geometry: %s", bike.ID, bike.Geometry)
		}
		if bike.HourlyPriceCents < 0 {
			return fmt.Errorf("bike '%s' has negative hourly price", bike.ID)
		}
		bikeIDs[bike.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderRenterID == "" {
		c.API.Auth.HeaderRenterID = "x-renter-id"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Payment.Currency == "" {
		c.Payment.Currency = models.DefaultCurrency
	}

	if c.Rental.MaxBookingDays == 0 {
		c.Rental.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Rental.HelmetFeeCents == 0 {
		c.Rental.HelmetFeeCents = models.DefaultHelmetFeeCents
	}
	if c.Rental.WorkerPollSeconds == 0 {
		c.Rental.WorkerPollSeconds = models.WorkerPollInterval
	}
	if c.Rental.RateLimitAttempts == 0 {
		c.Rental.RateLimitAttempts = models.RateLimitAttempts
	}
	if c.Rental.RateLimitWindowSec == 0 {
		c.Rental.RateLimitWindowSec = models.RateLimitWindow
	}
	if c.Rental.LeaderboardSize == 0 {
		c.Rental.LeaderboardSize = 10
	}
}
