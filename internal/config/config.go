// Package config loads the declarative startup configuration a federationd
// process needs: which bundle paths to register and which endpoints/ports
// to serve them on.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Environment variable names overriding individual config fields.
const (
	EnvBindAddress = "FEDERATIOND_BIND_ADDRESS"
	EnvLogLevel    = "FEDERATIOND_LOG_LEVEL"
)

// BundleConfig declares one path-to-trust-domain binding. The Source field
// names which BundleSource implementation to wire (currently only "static"
// is built in; the field exists so the daemon can grow new source kinds
// without a config format change).
type BundleConfig struct {
	Path        string `yaml:"path" mapstructure:"path" validate:"required,startswith=/"`
	TrustDomain string `yaml:"trust_domain" mapstructure:"trust_domain" validate:"required"`
	Source      string `yaml:"source" mapstructure:"source" validate:"required,oneof=static"`
	BundlePath  string `yaml:"bundle_path" mapstructure:"bundle_path" validate:"required_if=Source static"`
}

// EndpointConfig declares one served endpoint: its base URL, the auth kind
// ("web" or "spiffe"), the certificate/key pair for "web" endpoints, and the
// ports to serve it on.
type EndpointConfig struct {
	BaseURL  string   `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Auth     string   `yaml:"auth" mapstructure:"auth" validate:"required,oneof=web spiffe"`
	CertFile string   `yaml:"cert_file" mapstructure:"cert_file" validate:"required_if=Auth web"`
	KeyFile  string   `yaml:"key_file" mapstructure:"key_file" validate:"required_if=Auth web"`
	Ports    []uint16 `yaml:"ports" mapstructure:"ports" validate:"required,min=1,dive,min=1"`
}

// Config is the top-level federationd configuration document.
type Config struct {
	BindAddress string           `yaml:"bind_address" mapstructure:"bind_address"`
	LogLevel    string           `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Bundles     []BundleConfig   `yaml:"bundles" mapstructure:"bundles" validate:"dive"`
	Endpoints   []EndpointConfig `yaml:"endpoints" mapstructure:"endpoints" validate:"dive"`
}

// Default returns a Config with sensible defaults for local testing: no
// bundles, no endpoints, info logging, binding unset (the daemon decides a
// listen address per endpoint).
func Default() Config {
	return Config{
		LogLevel: "info",
	}
}

// Load reads path as YAML into a generic map, decodes it into Config via
// mapstructure's loose-field decoder, applies environment overrides, then
// validates the result with go-playground/validator.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, fmt.Errorf("config: building decoder: %w", err)
	}
	if err := decoder.Decode(generic); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: validating %s: %w", path, err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvBindAddress); v != "" {
		cfg.BindAddress = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}
