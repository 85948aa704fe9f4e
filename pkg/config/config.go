package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	"github.com/goliatone/go-pageguard/pkg/firewall"
	"github.com/goliatone/go-pageguard/pkg/vault"
)

// Config captures module-level configuration knobs. The vault, firewall and
// storage constructors pull from these nested structs.
type Config struct {
	Vault       VaultConfig       `mapstructure:"vault" json:"vault"`
	Firewall    FirewallConfig    `mapstructure:"firewall" json:"firewall"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit" json:"rate_limit"`
	Persistence PersistenceConfig `mapstructure:"persistence" json:"persistence"`
}

// VaultConfig pins the key derivation scheme.
type VaultConfig struct {
	DerivationVersion int `mapstructure:"derivation_version" json:"derivation_version"`
}

// FirewallConfig bounds outbound URLs and content.
type FirewallConfig struct {
	MaxURLLength     int     `mapstructure:"max_url_length" json:"max_url_length"`
	MaxContentLength int     `mapstructure:"max_content_length" json:"max_content_length"`
	BoundaryRatio    float64 `mapstructure:"boundary_ratio" json:"boundary_ratio"`
}

// RateLimitConfig is the default sliding window budget.
type RateLimitConfig struct {
	MaxRequests int   `mapstructure:"max_requests" json:"max_requests"`
	WindowMs    int64 `mapstructure:"window_ms" json:"window_ms"`
}

// PersistenceConfig selects the key-value backend.
type PersistenceConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	fw := firewall.DefaultOptions()
	return Config{
		Vault: VaultConfig{DerivationVersion: vault.CurrentDerivationVersion},
		Firewall: FirewallConfig{
			MaxURLLength:     fw.MaxURLLength,
			MaxContentLength: fw.MaxContentLength,
			BoundaryRatio:    fw.BoundaryRatio,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: fw.RateLimit.MaxRequests,
			WindowMs:    fw.RateLimit.Window.Milliseconds(),
		},
		Persistence: PersistenceConfig{
			Driver: "sqlite",
			DSN:    "file:pageguard.db?cache=shared",
		},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	if c.Vault.DerivationVersion <= 0 {
		return fmt.Errorf("vault.derivation_version must be > 0")
	}
	if c.Firewall.MaxURLLength <= 0 {
		return fmt.Errorf("firewall.max_url_length must be > 0")
	}
	if c.Firewall.MaxContentLength <= 0 {
		return fmt.Errorf("firewall.max_content_length must be > 0")
	}
	if c.Firewall.BoundaryRatio <= 0 || c.Firewall.BoundaryRatio > 1 {
		return fmt.Errorf("firewall.boundary_ratio must be within (0, 1]")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be > 0")
	}
	if c.RateLimit.WindowMs <= 0 {
		return fmt.Errorf("rate_limit.window_ms must be > 0")
	}
	switch c.Persistence.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("persistence.driver %q is not supported", c.Persistence.Driver)
	}
	return nil
}

// FirewallOptions maps the config onto firewall.Options.
func (c Config) FirewallOptions() firewall.Options {
	return firewall.Options{
		MaxURLLength:     c.Firewall.MaxURLLength,
		MaxContentLength: c.Firewall.MaxContentLength,
		BoundaryRatio:    c.Firewall.BoundaryRatio,
		RateLimit: firewall.RateLimitOptions{
			MaxRequests: c.RateLimit.MaxRequests,
			Window:      time.Duration(c.RateLimit.WindowMs) * time.Millisecond,
		},
	}
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// When cfgx.Build yields a zero value we fall back to a JSON round trip so
// plain maps still decode.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (preprocessors, hooks, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Vault.DerivationVersion == 0 {
		c.Vault.DerivationVersion = defaults.Vault.DerivationVersion
	}
	if c.Firewall.MaxURLLength == 0 {
		c.Firewall.MaxURLLength = defaults.Firewall.MaxURLLength
	}
	if c.Firewall.MaxContentLength == 0 {
		c.Firewall.MaxContentLength = defaults.Firewall.MaxContentLength
	}
	if c.Firewall.BoundaryRatio == 0 {
		c.Firewall.BoundaryRatio = defaults.Firewall.BoundaryRatio
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = defaults.RateLimit.MaxRequests
	}
	if c.RateLimit.WindowMs == 0 {
		c.RateLimit.WindowMs = defaults.RateLimit.WindowMs
	}
	c.Persistence.Driver = strings.ToLower(strings.TrimSpace(c.Persistence.Driver))
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = defaults.Persistence.Driver
	}
	if c.Persistence.Driver == "sqlite" && strings.TrimSpace(c.Persistence.DSN) == "" {
		c.Persistence.DSN = defaults.Persistence.DSN
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}
