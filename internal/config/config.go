// Package config loads settings for the opencode-provider command line.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcozac/go-jsonc"
	"github.com/spf13/viper"
	"github.com/zerosync-co/opencode-provider/pkg/host"
)

// Config is the harness configuration. The provider itself takes its
// settings from the host.
type Config struct {
	ServerURL  string `json:"serverUrl" mapstructure:"serverUrl"`
	Model      string `json:"model" mapstructure:"model"`
	Debug      bool   `json:"debug,omitempty" mapstructure:"debug"`
	A2AConfig  string `json:"a2aConfig,omitempty" mapstructure:"a2aConfig"`
	WorkingDir string `json:"wd,omitempty" mapstructure:"wd"`
}

const (
	appName = "opencode-provider"

	DefaultServerURL = "http://localhost:4096"
	DefaultModel     = "claude-3-5-sonnet"
)

// ErrInvalidConfig wraps any failure to read or validate configuration.
type ErrInvalidConfig struct {
	source error
}

func (e ErrInvalidConfig) Error() string {
	return "invalid config: " + e.source.Error()
}

func (e ErrInvalidConfig) Unwrap() error {
	return e.source
}

// Load reads the global config file, merges a local one from workingDir and
// applies OPENCODE_PROVIDER_* environment overrides.
func Load(workingDir string, debug bool) (*Config, error) {
	v := viper.New()
	configureViper(v)
	setDefaults(v, debug)

	if err := readConfig(v.ReadInConfig()); err != nil {
		return nil, ErrInvalidConfig{err}
	}
	mergeLocalConfig(v, workingDir)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ErrInvalidConfig{fmt.Errorf("failed to unmarshal config: %w", err)}
	}
	cfg.WorkingDir = workingDir
	if debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, ErrInvalidConfig{err}
	}
	slog.Debug("config loaded", "file", v.ConfigFileUsed(), "server_url", cfg.ServerURL, "model", cfg.Model)
	return cfg, nil
}

func configureViper(v *viper.Viper) {
	v.SetConfigName(fmt.Sprintf(".%s", appName))
	v.SetConfigType("json")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	v.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(appName, "-", "_")))
	v.AutomaticEnv()
}

func setDefaults(v *viper.Viper, debug bool) {
	v.SetDefault("serverUrl", DefaultServerURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("debug", debug)
	v.SetDefault("a2aConfig", "")
}

// readConfig tolerates a missing config file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}

func mergeLocalConfig(v *viper.Viper, workingDir string) {
	if workingDir == "" {
		return
	}
	local := viper.New()
	local.SetConfigName(fmt.Sprintf(".%s", appName))
	local.SetConfigType("json")
	local.AddConfigPath(workingDir)

	if err := local.ReadInConfig(); err == nil {
		if err := v.MergeConfigMap(local.AllSettings()); err != nil {
			slog.Warn("failed to merge local config", "dir", workingDir, "error", err)
		}
	}
}

// Validate checks the server url is absolute.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("serverUrl: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("serverUrl %q must include scheme and host", c.ServerURL)
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	return nil
}

// LoadA2AServers reads external tool server definitions from a JSONC file
// keyed by server name. Relative paths resolve against workingDir.
func LoadA2AServers(workingDir, path string) (host.A2AServers, error) {
	if path == "" {
		return nil, nil
	}
	if !filepath.IsAbs(path) && workingDir != "" {
		path = filepath.Join(workingDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrInvalidConfig{err}
	}
	var servers host.A2AServers
	if err := jsonc.Unmarshal(data, &servers); err != nil {
		return nil, ErrInvalidConfig{fmt.Errorf("%s: %w", path, err)}
	}
	return servers, nil
}
