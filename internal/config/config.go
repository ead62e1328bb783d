// Package config loads qrnode settings from a YAML file, an optional .env
// file and QRNODE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	Port          int    `yaml:"port" validate:"min=1,max=65535"`
	LogLevel      string `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFile       string `yaml:"log_file"`
	Encoder       string `yaml:"encoder" validate:"oneof=yeqown skip2 svg"`
	Transparent   bool   `yaml:"transparent"`
	VariablesFile string `yaml:"variables_file"`
	DotenvFile    string `yaml:"dotenv_file"`
}

var validate = validator.New()

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		Port:     8188,
		LogLevel: "info",
		Encoder:  "yeqown",
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file next to the working
// directory is loaded into the environment without overriding variables that
// are already set; QRNODE_* variables then override file values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Encoder = strings.ToLower(cfg.Encoder)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// applyEnvOverrides applies QRNODE_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("QRNODE_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QRNODE_PORT: %w", err)
		}
		cfg.Port = p
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRNODE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRNODE_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("QRNODE_ENCODER"); v != "" {
		cfg.Encoder = v
	}
	if v := os.Getenv("QRNODE_VARIABLES_FILE"); v != "" {
		cfg.VariablesFile = v
	}
	if v := os.Getenv("QRNODE_DOTENV_FILE"); v != "" {
		cfg.DotenvFile = v
	}
	if v := os.Getenv("QRNODE_TRANSPARENT"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			cfg.Transparent = true
		case "false", "0", "no":
			cfg.Transparent = false
		default:
			return fmt.Errorf("QRNODE_TRANSPARENT: invalid boolean %q", v)
		}
	}
	return nil
}
