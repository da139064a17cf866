package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/telemetry"
)

// Environment variables that override the configuration file.
const (
	EnvAPIKey   = "SKYSCANNER_API_KEY"
	EnvLogLevel = "SKYSCANNER_LOG_LEVEL"
)

// Duration is a time.Duration that unmarshals from YAML strings like "40s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root application configuration.
type Config struct {
	Provider ProviderConfig          `yaml:"provider" validate:"required"`
	Search   SearchConfig            `yaml:"search"`
	Logging  telemetry.LoggingConfig `yaml:"logging"`
	Metrics  telemetry.MetricsConfig `yaml:"metrics"`
	Tracing  telemetry.TracingConfig `yaml:"tracing"`
	Store    StoreConfig             `yaml:"store"`
}

// ProviderConfig configures the flight search API client.
type ProviderConfig struct {
	// APIURL is the base URL of the search API.
	APIURL string `yaml:"apiUrl" validate:"required,url"`

	// APIKey authenticates requests. Usually supplied via SKYSCANNER_API_KEY.
	APIKey string `yaml:"apiKey" validate:"required"`

	// RateTimeoutBase is the initial cooldown after a rate limit hit.
	RateTimeoutBase Duration `yaml:"rateTimeoutBase"`

	// RateTimeoutStep is added to the cooldown base on each repeat hit.
	RateTimeoutStep Duration `yaml:"rateTimeoutStep"`

	// RetryFailedDelay is the backoff unit for failed request retries.
	RetryFailedDelay Duration `yaml:"retryFailedDelay"`

	// MaxFailedRetries caps failed request retries before abandoning.
	MaxFailedRetries int `yaml:"maxFailedRetries" validate:"min=0"`
}

// SearchConfig configures the shared search parameters and the run pacing.
type SearchConfig struct {
	Market     string   `yaml:"market"`
	Locale     string   `yaml:"locale"`
	Currency   string   `yaml:"currency" validate:"omitempty,len=3"`
	CabinClass string   `yaml:"cabinClass"`
	QueueDelay Duration `yaml:"queueDelay"`
}

// StoreConfig configures the optional run history store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables the store.
	Path string `yaml:"path"`
}

// Default returns the configuration with stock values.
func Default() Config {
	return Config{
		Provider: ProviderConfig{
			APIURL:           "https://partners.api.skyscanner.net/apiservices/v3",
			RateTimeoutBase:  Duration(40 * time.Second),
			RateTimeoutStep:  Duration(5 * time.Second),
			RetryFailedDelay: Duration(100 * time.Millisecond),
			MaxFailedRetries: 5,
		},
		Search: SearchConfig{
			Market:     "HR",
			Locale:     "ru-RU",
			Currency:   "EUR",
			CabinClass: "CABIN_CLASS_ECONOMY",
			QueueDelay: Duration(10 * time.Second),
		},
		Logging: telemetry.LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: telemetry.MetricsConfig{
			Namespace: "skyscanner",
		},
		Tracing: telemetry.TracingConfig{
			Exporter:     "stdout",
			SamplingRate: 1.0,
		},
	}
}

// Load reads a configuration file, applies environment overrides and
// validates the result. An empty path yields the defaults plus overrides,
// which still must validate (the API key in particular).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays the environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
