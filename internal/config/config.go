// Package config loads the runtime settings of gist-index from an optional YAML file,
// an optional .env file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/gist-index/internal/domain"
)

const (
	DefaultTargetFilename = "Public-Gists.md"
	DefaultTimezone       = "UTC"
	DefaultDateFormat     = "2006-01-02"
	DefaultTimeFormat     = "15:04"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultHTTPRetries    = 3
	DefaultAPIURL         = "https://api.github.com/"
	DefaultGraphQLURL     = "https://api.github.com/graphql"
)

// Config holds every setting a run needs.
type Config struct {
	Username          string        `yaml:"username"`
	TargetGistID      string        `yaml:"target_gist_id"`
	Token             string        `yaml:"-"`
	TargetFilename    string        `yaml:"target_filename"`
	Timezone          string        `yaml:"timezone"`
	DateFormat        string        `yaml:"date_format"`
	TimeFormat        string        `yaml:"time_format"`
	Verbose           bool          `yaml:"verbose"`
	EnrichConcurrency int           `yaml:"enrich_concurrency"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	HTTPRetries       int           `yaml:"http_retries"`
	APIURL            string        `yaml:"api_url"`
	GraphQLURL        string        `yaml:"graphql_url"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		TargetFilename:    DefaultTargetFilename,
		Timezone:          DefaultTimezone,
		DateFormat:        DefaultDateFormat,
		TimeFormat:        DefaultTimeFormat,
		EnrichConcurrency: 1,
		HTTPTimeout:       DefaultHTTPTimeout,
		HTTPRetries:       DefaultHTTPRetries,
		APIURL:            DefaultAPIURL,
		GraphQLURL:        DefaultGraphQLURL,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path is empty),
// a .env file in the working directory if present, and the environment.
// The token is only ever read from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.ConfigError{Key: ".env", Reason: err.Error()}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &domain.ConfigError{Key: "config file", Reason: err.Error()}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &domain.ConfigError{Key: "config file", Reason: err.Error()}
		}
	}

	cfg.Username = getEnv("GITHUB_USERNAME", cfg.Username)
	cfg.TargetGistID = getEnv("LIST_GIST_ID", cfg.TargetGistID)
	cfg.Token = getEnv("GIST_TOKEN", cfg.Token)
	cfg.TargetFilename = getEnv("TARGET_MD_FILENAME", cfg.TargetFilename)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.DateFormat = getEnv("DATE_FORMAT", cfg.DateFormat)
	cfg.TimeFormat = getEnv("TIME_FORMAT", cfg.TimeFormat)
	cfg.APIURL = getEnv("GITHUB_API_URL", cfg.APIURL)
	cfg.GraphQLURL = getEnv("GITHUB_GRAPHQL_URL", cfg.GraphQLURL)

	var err error
	if cfg.Verbose, err = getEnvAsBool("VERBOSE", cfg.Verbose); err != nil {
		return nil, err
	}
	if cfg.EnrichConcurrency, err = getEnvAsInt("ENRICH_CONCURRENCY", cfg.EnrichConcurrency); err != nil {
		return nil, err
	}
	if cfg.HTTPRetries, err = getEnvAsInt("HTTP_RETRIES", cfg.HTTPRetries); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getEnvAsDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that must hold before any network call is made.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return &domain.ConfigError{Key: "GITHUB_USERNAME", Reason: "is required"}
	}
	if c.TargetFilename == "" {
		return &domain.ConfigError{Key: "TARGET_MD_FILENAME", Reason: "must not be empty"}
	}
	if _, err := c.Location(); err != nil {
		return &domain.ConfigError{Key: "TIMEZONE", Reason: err.Error()}
	}
	if c.EnrichConcurrency < 1 {
		return &domain.ConfigError{Key: "ENRICH_CONCURRENCY", Reason: "must be at least 1"}
	}
	if c.HTTPRetries < 1 {
		return &domain.ConfigError{Key: "HTTP_RETRIES", Reason: "must be at least 1"}
	}
	if c.HTTPTimeout <= 0 {
		return &domain.ConfigError{Key: "HTTP_TIMEOUT", Reason: "must be positive"}
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// PublishEnabled reports whether the report should be written back into the index gist.
// Both a target and a token are needed.
func (c *Config) PublishEnabled() bool {
	return c.TargetGistID != "" && c.Token != ""
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &domain.ConfigError{Key: key, Reason: fmt.Sprintf("%q is not an integer", value)}
	}
	return n, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, &domain.ConfigError{Key: key, Reason: fmt.Sprintf("%q is not a boolean", value)}
	}
	return b, nil
}

// getEnvAsDuration accepts Go durations ("45s") and bare seconds ("45").
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &domain.ConfigError{Key: key, Reason: fmt.Sprintf("%q is not a duration", value)}
	}
	return d, nil
}
