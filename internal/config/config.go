// Package config resolves client configuration from environment variables,
// an optional config file, and built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Options holds the configuration values for the client.
type Options struct {
	// DataDir is the root directory for local state: the credential file,
	// the device key, and downloaded books.
	DataDir string `mapstructure:"data_dir"`

	// LogLevel is the zap log level ("debug", "info", "warn", "error").
	LogLevel string `mapstructure:"log_level"`

	// LoginTimeout bounds the login credential probe.
	LoginTimeout time.Duration `mapstructure:"login_timeout"`

	// RequestTimeout bounds every other API request.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load resolves options. Environment variables use the EKREADER_ prefix
// (EKREADER_DATA_DIR, EKREADER_LOG_LEVEL, ...). If configPath is non-empty
// the file is read and may override defaults; a missing file at the default
// location is not an error.
func Load(configPath string) (*Options, error) {
	v := viper.New()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("login_timeout", 5*time.Second)
	v.SetDefault("request_timeout", 30*time.Second)

	v.SetEnvPrefix("EKREADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultDataDir())
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ekreader"
	}
	return filepath.Join(home, ".ekreader")
}
