// Package internal provides the pipeline driver and runtime configuration.
package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Auth modes for the report server.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Registry    RegistryConfig    `yaml:"registry"`
	Attestation AttestationConfig `yaml:"attestation"`
	Links       LinksConfig       `yaml:"links"`
	Secrets     SecretsConfig     `yaml:"secrets"`
	Index       IndexConfig       `yaml:"index"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Corpus.Validate(); err != nil {
		return err
	}
	if err := c.Attestation.Validate(); err != nil {
		return err
	}
	if err := c.Links.Validate(); err != nil {
		return err
	}
	if err := c.Secrets.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Workers  int        `yaml:"workers"` // per-entry validation parallelism
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(256)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds the report server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CorpusConfig selects the entry files under validation.
type CorpusConfig struct {
	Root    string   `yaml:"root"`
	Globs   []string `yaml:"globs"`
	Ignores []string `yaml:"ignores"`
}

// Validate validates the corpus configuration.
func (c *CorpusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Globs, validation.Required),
	)
}

// RegistryConfig locates the central exception registry.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// AttestationConfig holds the signer-threshold policy.
type AttestationConfig struct {
	DefaultThreshold int `yaml:"default_threshold"`
}

// Validate validates the attestation configuration.
func (c *AttestationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultThreshold, validation.Required, validation.Min(1)),
	)
}

// Duration wraps time.Duration so YAML values like "8s" or "24h" decode via
// time.ParseDuration; bare integers are taken as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// LinksConfig controls external link probing and its cache.
type LinksConfig struct {
	Timeout     Duration `yaml:"timeout"`
	Workers     int      `yaml:"workers"`
	RatePerSec  float64  `yaml:"rate_per_sec"`
	CachePath   string   `yaml:"cache_path"`
	CacheMaxAge Duration `yaml:"cache_max_age"`
	AllowHosts  []string `yaml:"allow_hosts"`
	DenyHosts   []string `yaml:"deny_hosts"`

	// ExternalOnly skips internal anchor and relative-path resolution.
	ExternalOnly bool `yaml:"external_only"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(128)),
	)
}

// SecretsConfig controls the secret scanner inputs.
type SecretsConfig struct {
	AllowlistPath    string  `yaml:"allowlist_path"`
	BaselinePath     string  `yaml:"baseline_path"`
	EntropyThreshold float64 `yaml:"entropy_threshold"`
}

// Validate validates the secrets configuration.
func (c *SecretsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.EntropyThreshold, validation.Min(0.0), validation.Max(8.0)),
	)
}

// IndexConfig controls the derived summary.
type IndexConfig struct {
	Out     string `yaml:"out"`
	GroupBy string `yaml:"group_by"`
	Heading string `yaml:"heading"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.GroupBy, validation.In("stream", "domain", "status", "none")),
	)
}

// AuthConfig holds report-server authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Workers:  8,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Corpus: CorpusConfig{
			Root:    ".",
			Globs:   []string{"canonized/**/*.md", "intake/**/*.md"},
			Ignores: []string{"**/README.md", "**/attachments/**"},
		},
		Registry: RegistryConfig{
			Path: "governance/exceptions.yaml",
		},
		Attestation: AttestationConfig{
			DefaultThreshold: 2,
		},
		Links: LinksConfig{
			Timeout:     Duration(8 * time.Second),
			Workers:     16,
			RatePerSec:  20,
			CachePath:   ".raido/linkcheck.db",
			CacheMaxAge: Duration(24 * time.Hour),
		},
		Secrets: SecretsConfig{
			AllowlistPath:    ".secretignore",
			BaselinePath:     ".raido/secret-baseline.json",
			EntropyThreshold: 3.6,
		},
		Index: IndexConfig{
			Out:     "INDEX.md",
			GroupBy: "stream",
			Heading: "Ledger Canonical Index",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
