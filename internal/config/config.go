// Package config resolves chatkeep settings from defaults, an optional
// chatkeep.yaml, CHATKEEP_* environment variables and CLI flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"chatkeep/internal/backend"
	"chatkeep/internal/store"
)

const (
	AppName  = "chatkeep"
	FileName = "chatkeep.yaml"

	KeyDataDir        = "data_dir"
	KeyBackendType    = "backend.type"
	KeyBackendOptions = "backend.options"
	KeyLogLevel       = "log.level"
	KeyRetentionDays  = "retention_days"

	envPrefix = "CHATKEEP"
)

type Config struct {
	DataDir       string         `mapstructure:"data_dir" yaml:"data_dir"`
	Backend       backend.Config `mapstructure:"backend" yaml:"backend"`
	Log           LogConfig      `mapstructure:"log" yaml:"log"`
	RetentionDays int            `mapstructure:"retention_days" yaml:"retention_days"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultDataDir is $XDG_DATA_HOME/chatkeep.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// NewViper returns a viper instance with defaults and environment binding in
// place. Callers bind flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyBackendType, backend.TypeFile)
	v.SetDefault(KeyBackendOptions, map[string]any{})
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyRetentionDays, store.DefaultRetentionDays)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile, or chatkeep.yaml from the data dir when configFile
// is empty, and decodes the merged settings. A missing default file is not
// an error; a missing explicit one is.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString(KeyDataDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.RetentionDays < 0 {
		return nil, fmt.Errorf("retention_days must not be negative, got %d", cfg.RetentionDays)
	}
	return &cfg, nil
}

// BackendConfig returns the backend selection with storage paths defaulted
// under DataDir.
func (c *Config) BackendConfig() backend.Config {
	opts := make(map[string]any, len(c.Backend.Options)+1)
	maps.Copy(opts, c.Backend.Options)

	typ := strings.ToLower(c.Backend.Type)
	switch typ {
	case backend.TypeFile, "":
		if isUnset(opts["dir"]) {
			opts["dir"] = filepath.Join(c.DataDir, "sessions")
		}
	case backend.TypeSQLite:
		if isUnset(opts["path"]) {
			opts["path"] = filepath.Join(c.DataDir, "sessions.db")
		}
	}
	return backend.Config{Type: typ, Options: opts}
}

func isUnset(v any) bool {
	s, ok := v.(string)
	return v == nil || (ok && s == "")
}

// Starter is the content `chatkeep init` writes for a fresh data dir.
func Starter(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		Backend: backend.Config{
			Type:    backend.TypeFile,
			Options: map[string]any{"dir": filepath.Join(dataDir, "sessions")},
		},
		Log:           LogConfig{Level: "info"},
		RetentionDays: store.DefaultRetentionDays,
	}
}

// WriteStarter writes cfg to path unless a file already exists there. It
// reports whether it wrote anything.
func WriteStarter(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
