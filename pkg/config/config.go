/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/capacity"
	"github.com/ssargent/statext/pkg/logging"
)

// DefaultNamespace is the namespace state buffers are owned by unless
// configured otherwise.
const DefaultNamespace = "ENrRns55VechXJiq4bMbdx7idzQh7tvaEJoYeWxRNe7Y"

// Config represents the statext configuration
type Config struct {
	DataDir       string          `yaml:"data_dir" validate:"required"`
	Port          int             `yaml:"port" validate:"min=1,max=65535"`
	Bind          string          `yaml:"bind" validate:"required"`
	Backend       string          `yaml:"backend" validate:"oneof=log pebble"`
	FsyncInterval time.Duration   `yaml:"fsync_interval" validate:"gte=0"`
	Namespace     string          `yaml:"namespace" validate:"required,address"`
	Rent          capacity.Rent   `yaml:"rent"`
	Limits        capacity.Limits `yaml:"limits"`
	Security      Security        `yaml:"security"`
	Logging       logging.Config  `yaml:"logging"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key" validate:"required"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:   "./data",
		Port:      8080,
		Bind:      "127.0.0.1",
		Backend:   "log",
		Namespace: DefaultNamespace,
		Rent:      capacity.DefaultRent(),
		Limits:    capacity.DefaultLimits(),
		Security: Security{
			APIKey: "auto",
		},
		Logging: logging.DefaultConfig(),
	}
}

// NewValidator returns a validator that also understands the "address" tag:
// a base58 32-byte address.
func NewValidator() (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			panic(fmt.Errorf("%q is not a string", fl.FieldName()))
		}
		_, err := account.ParseAddress(fl.Field().String())
		return err == nil
	})
	return v, err
}

// Validate checks every field.
func (c *Config) Validate() error {
	v, err := NewValidator()
	if err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NamespaceAddress parses the configured namespace.
func (c *Config) NamespaceAddress() (account.Address, error) {
	return account.ParseAddress(c.Namespace)
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./statext.yaml"
	}

	// For Linux/macOS, use ~/.config/statext/config.yaml
	return filepath.Join(homeDir, ".config", "statext", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
