// Package config handles configuration loading using viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"firestige.xyz/spamprint/internal/core"
	"firestige.xyz/spamprint/internal/digest"
	"firestige.xyz/spamprint/internal/log"
	"firestige.xyz/spamprint/internal/servers"
)

// FileName is the config file looked up in the home directory.
const FileName = "config.yaml"

// Config is the full client configuration.
// Maps to the `spamprint:` root key in YAML.
type Config struct {
	Client  ClientConfig     `mapstructure:"client"`
	Output  OutputConfig     `mapstructure:"output"`
	Log     log.LoggerConfig `mapstructure:"log"`
	Metrics MetricsConfig    `mapstructure:"metrics"`

	// Homedir is where relative file names are resolved. Not read from the
	// file.
	Homedir string `mapstructure:"-"`
}

// ClientConfig contains server communication settings.
type ClientConfig struct {
	ServersFile        string        `mapstructure:"servers_file"`  // relative to homedir
	AccountsFile       string        `mapstructure:"accounts_file"` // relative to homedir
	DiscoverServersURL string        `mapstructure:"discover_servers_url"`
	DownloadTimeout    time.Duration `mapstructure:"download_timeout"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxPacketSize      int           `mapstructure:"max_packet_size"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"` // 0 disables the response cache
	DigestSpec         string        `mapstructure:"digest_spec"`
	DecodeCharsets     bool          `mapstructure:"decode_charsets"` // archive text parts to UTF-8 before digesting
}

// OutputConfig selects how command results are printed.
type OutputConfig struct {
	Format string `mapstructure:"format"` // text / json / yaml
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty = disabled
}

type configRoot struct {
	Spamprint Config `mapstructure:"spamprint"`
}

// Load reads path, or <homedir>/config.yaml when path is empty. An explicit
// path must exist; the default one is optional.
// Env vars override file values: key "spamprint.client.timeout" maps to
// SPAMPRINT_CLIENT_TIMEOUT.
func Load(homedir, path string) (*Config, error) {
	v := viper.New()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(homedir, FileName)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)
		if explicit || !missing {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&root, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Spamprint
	cfg.Homedir = homedir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default(homedir string) *Config {
	v := viper.New()
	setDefaults(v)
	var root configRoot
	_ = v.Unmarshal(&root, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc()))
	cfg := root.Spamprint
	cfg.Homedir = homedir
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Client defaults
	v.SetDefault("spamprint.client.servers_file", "servers")
	v.SetDefault("spamprint.client.accounts_file", "accounts")
	v.SetDefault("spamprint.client.discover_servers_url", servers.DefaultInformURL)
	v.SetDefault("spamprint.client.download_timeout", "30s")
	v.SetDefault("spamprint.client.timeout", "5s")
	v.SetDefault("spamprint.client.max_packet_size", 8192)
	v.SetDefault("spamprint.client.cache_ttl", "1m")
	v.SetDefault("spamprint.client.digest_spec", digest.DefaultPlan.String())
	v.SetDefault("spamprint.client.decode_charsets", false)

	// Output defaults
	v.SetDefault("spamprint.output.format", "text")

	// Log defaults
	v.SetDefault("spamprint.log.level", "info")
	v.SetDefault("spamprint.log.pattern", log.DefaultPattern)
	v.SetDefault("spamprint.log.time", log.DefaultTimeLayout)
	v.SetDefault("spamprint.log.report_caller", false)
	v.SetDefault("spamprint.log.file.filename", "")
	v.SetDefault("spamprint.log.file.max_size", 10)
	v.SetDefault("spamprint.log.file.max_backups", 3)
	v.SetDefault("spamprint.log.file.max_age", 30)
	v.SetDefault("spamprint.log.file.compress", false)

	// Metrics defaults
	v.SetDefault("spamprint.metrics.textfile", "")
}

// Validate checks value ranges.
func (cfg *Config) Validate() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Output.Format) {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: invalid output format: %s (must be text/json/yaml)", core.ErrConfigInvalid, cfg.Output.Format)
	}
	if cfg.Client.Timeout <= 0 {
		return fmt.Errorf("%w: client.timeout must be positive", core.ErrConfigInvalid)
	}
	if cfg.Client.MaxPacketSize < 512 || cfg.Client.MaxPacketSize > 65535 {
		return fmt.Errorf("%w: client.max_packet_size must be within [512, 65535]", core.ErrConfigInvalid)
	}
	if cfg.Client.CacheTTL < 0 {
		return fmt.Errorf("%w: client.cache_ttl must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Client.ServersFile == "" {
		return fmt.Errorf("%w: client.servers_file is required", core.ErrConfigInvalid)
	}
	if _, err := digest.ParsePlan(cfg.Client.DigestSpec); err != nil {
		return fmt.Errorf("%w: client.digest_spec: %v", core.ErrConfigInvalid, err)
	}
	return nil
}

// Plan returns the parsed digest spec.
func (cfg *Config) Plan() digest.Plan {
	p, err := digest.ParsePlan(cfg.Client.DigestSpec)
	if err != nil {
		return digest.DefaultPlan
	}
	return p
}

// Path resolves a configured file name against the home directory.
func (cfg *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.Homedir, name)
}

func (cfg *Config) ServersPath() string  { return cfg.Path(cfg.Client.ServersFile) }
func (cfg *Config) AccountsPath() string { return cfg.Path(cfg.Client.AccountsFile) }
