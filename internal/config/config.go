// Package config resolves runtime settings from flags, the environment, an
// optional .env file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/FranksOps/hnscrape/internal/logging"
	"github.com/FranksOps/hnscrape/internal/session"
	"github.com/spf13/viper"
)

// Keys double as environment variable names once upper-cased.
const (
	KeyCloud         = "use_cloud"
	KeyToken         = "lpd_token"
	KeyCloudEndpoint = "lpd_cloud_endpoint"
	KeyHost          = "lpd_host"
	KeyPort          = "lpd_port"
	KeyBinary        = "lpd_binary"
	KeyTimeout       = "timeout"
	KeySearchTerm    = "search_term"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyStore         = "store"
	KeyMetricsPort   = "metrics_port"
)

const DefaultSearchTerm = "lightpanda"

// Config is the resolved runtime configuration.
type Config struct {
	// Cloud is set only by the exact value "true".
	Cloud         bool
	Token         string
	CloudEndpoint string
	Host          string
	Port          int
	Binary        string
	Timeout       time.Duration
	SearchTerm    string
	LogLevel      string
	LogFormat     string
	Store         string
	MetricsPort   int
}

// New returns a viper instance with defaults registered and environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyCloud, false)
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyCloudEndpoint, session.DefaultCloudEndpoint)
	v.SetDefault(KeyHost, session.DefaultHost)
	v.SetDefault(KeyPort, session.DefaultPort)
	v.SetDefault(KeyBinary, "lightpanda")
	v.SetDefault(KeyTimeout, session.DefaultTimeout.Milliseconds())
	v.SetDefault(KeySearchTerm, DefaultSearchTerm)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logging.FormatPretty)
	v.SetDefault(KeyStore, "")
	v.SetDefault(KeyMetricsPort, 0)
	v.AutomaticEnv()
	return v
}

// ReadDotEnv merges KEY=value pairs from path beneath the environment. A
// missing file is not an error.
func ReadDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("dotenv")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Load reads and validates every setting from v. A missing cloud token is
// not reported here; the session rejects it when cloud mode starts.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Cloud:         v.GetString(KeyCloud) == "true",
		Token:         v.GetString(KeyToken),
		CloudEndpoint: v.GetString(KeyCloudEndpoint),
		Host:          v.GetString(KeyHost),
		Port:          v.GetInt(KeyPort),
		Binary:        v.GetString(KeyBinary),
		Timeout:       time.Duration(v.GetInt64(KeyTimeout)) * time.Millisecond,
		SearchTerm:    v.GetString(KeySearchTerm),
		LogLevel:      strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:     strings.ToLower(v.GetString(KeyLogFormat)),
		Store:         v.GetString(KeyStore),
		MetricsPort:   v.GetInt(KeyMetricsPort),
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, invalid(KeyPort, "%d out of range", cfg.Port)
	}
	if cfg.Timeout <= 0 {
		return Config{}, invalid(KeyTimeout, "must be a positive number of milliseconds, got %q", v.GetString(KeyTimeout))
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return Config{}, invalid(KeyMetricsPort, "%d out of range", cfg.MetricsPort)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, &session.ConfigurationError{Field: envName(KeyLogLevel), Err: err}
	}
	if !logging.ValidFormat(cfg.LogFormat) {
		return Config{}, invalid(KeyLogFormat, "unknown format %q", cfg.LogFormat)
	}
	return cfg, nil
}

func invalid(key, format string, args ...any) error {
	return &session.ConfigurationError{Field: envName(key), Err: fmt.Errorf(format, args...)}
}

func envName(key string) string { return strings.ToUpper(key) }

// Mode maps the cloud flag to a session mode.
func (c Config) Mode() session.Mode {
	if c.Cloud {
		return session.ModeCloud
	}
	return session.ModeLocal
}

// Session returns the subset of settings a Session needs.
func (c Config) Session() session.Config {
	return session.Config{
		Mode:          c.Mode(),
		Host:          c.Host,
		Port:          c.Port,
		Binary:        c.Binary,
		CloudEndpoint: c.CloudEndpoint,
		CloudToken:    c.Token,
		Timeout:       c.Timeout,
	}
}
