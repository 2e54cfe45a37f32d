// Package config handles configuration loading and validation for the
// verification service. A config file (TOML, YAML, or JSON by
// extension) sets every knob; environment variables override the file,
// so containerized deployments can run file-less.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete service configuration.
type Config struct {
	// Server is the HTTP listener configuration.
	Server ServerConfig `toml:"server" json:"server" yaml:"server"`

	// Challenge controls challenge lifetimes.
	Challenge ChallengeConfig `toml:"challenge" json:"challenge" yaml:"challenge"`

	// Security holds the HMAC secret and admin token.
	Security SecurityConfig `toml:"security" json:"security" yaml:"security"`

	// Signing configures the optional Ed25519 receipt co-signature.
	Signing SigningConfig `toml:"signing" json:"signing" yaml:"signing"`

	// Data configures on-disk session storage.
	Data DataConfig `toml:"data" json:"data" yaml:"data"`

	// Logging configures the structured logger.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `toml:"host" json:"host" yaml:"host"`
	Port int    `toml:"port" json:"port" yaml:"port"`
}

// ChallengeConfig holds challenge lifetimes. The embed TTL is always
// twice the standalone TTL.
type ChallengeConfig struct {
	TTLMs int64 `toml:"ttl_ms" json:"ttl_ms" yaml:"ttl_ms"`
}

// SecurityConfig holds secrets. An empty Secret means the service
// generates an ephemeral per-process key; an empty AdminToken disables
// the admin routes.
type SecurityConfig struct {
	Secret     string `toml:"secret" json:"secret" yaml:"secret"`
	AdminToken string `toml:"admin_token" json:"admin_token" yaml:"admin_token"`
}

// SigningConfig holds the optional receipt signing key path.
type SigningConfig struct {
	KeyPath string `toml:"key_path" json:"key_path" yaml:"key_path"`
}

// DataConfig holds storage paths. The session log and the archive
// always live under Dir (see SessionLogPath and ArchivePath).
type DataConfig struct {
	Dir string `toml:"dir" json:"dir" yaml:"dir"`
}

// LoggingConfig holds structured-logging options.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Challenge: ChallengeConfig{TTLMs: 180000},
		Data:      DataConfig{Dir: "data"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config file at path (empty path: defaults only),
// applies environment overrides, and validates. Missing files are not
// an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	return nil
}

// ApplyEnvOverrides lets the environment win over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CHALLENGE_TTL_MS"); v != "" {
		if ttl, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Challenge.TTLMs = ttl
		}
	}
	if v := os.Getenv("CLNP_SECRET"); v != "" {
		c.Security.Secret = v
	}
	if v := os.Getenv("CLNP_ADMIN_TOKEN"); v != "" {
		c.Security.AdminToken = v
	}
	if v := os.Getenv("CLNP_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("CLNP_SIGNING_KEY"); v != "" {
		c.Signing.KeyPath = v
	}
	if v := os.Getenv("CLNP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Challenge.TTLMs < 1000 {
		errs = append(errs, fmt.Errorf("challenge ttl %dms too short", c.Challenge.TTLMs))
	}
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	return errors.Join(errs...)
}

// TTL returns the standalone challenge TTL.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Challenge.TTLMs) * time.Millisecond
}

// EmbedTTL returns the embed challenge TTL, twice standalone.
func (c *Config) EmbedTTL() time.Duration {
	return 2 * c.TTL()
}

// SessionLogPath is the JSONL session log location.
func (c *Config) SessionLogPath() string {
	return filepath.Join(c.Data.Dir, "sessions.jsonl")
}

// ArchivePath is the sqlite session archive location.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.Data.Dir, "sessions.db")
}
