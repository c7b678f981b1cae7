// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// PredictURL is the prediction service endpoint that receives ingredient queries.
	PredictURL     string        `yaml:"predict_url"`
	ListenAddr     string        `yaml:"listen_addr"`
	AllowOrigins   []string      `yaml:"allow_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	// WorkflowTTL is how long a mounted workflow may go unused before it is
	// evicted. Zero keeps workflows until they are unmounted.
	WorkflowTTL time.Duration `yaml:"workflow_ttl"`
}

// Default returns the configuration used when no file or variable overrides it.
func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		AllowOrigins:   []string{"http://localhost:3000"},
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		WorkflowTTL:    30 * time.Minute,
	}
}

// Load reads path (if it exists) over the defaults and then applies the
// PREDICT_URL, PORT, ALLOW_ORIGINS, REQUEST_TIMEOUT, LOG_LEVEL and
// WORKFLOW_TTL variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PREDICT_URL"); ok && v != "" {
		c.PredictURL = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.ListenAddr = ":" + v
	}
	if v, ok := lookup("ALLOW_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			c.AllowOrigins = origins
		}
	}
	if v, ok := lookup("REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.RequestTimeout = d
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("WORKFLOW_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid WORKFLOW_TTL %q: %w", v, err)
		}
		c.WorkflowTTL = d
	}
	return nil
}

// Validate reports configuration the service cannot start with.
func (c Config) Validate() error {
	if c.PredictURL == "" {
		return errors.New("predict_url is required")
	}
	u, err := url.Parse(c.PredictURL)
	if err != nil {
		return fmt.Errorf("invalid predict_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("predict_url must be an absolute http(s) URL, got %q", c.PredictURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if c.WorkflowTTL < 0 {
		return fmt.Errorf("workflow_ttl must not be negative, got %s", c.WorkflowTTL)
	}
	return nil
}
