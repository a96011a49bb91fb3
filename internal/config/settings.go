package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "devsetup"

// DefaultConfigFile is where LoadSettings looks when no --config is given.
func DefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// LoadSettings resolves devsetup's own settings once at startup. Precedence:
// DEVSETUP_* environment, then the config file, then defaults derived from
// XDG directories, $HOME and $SHELL. A missing config file is not an error.
func LoadSettings(cfgFile string) (*Settings, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to find home directory: %w", err)
	}

	v.SetDefault("manifest", "")
	v.SetDefault("log_dir", filepath.Join(xdg.StateHome, appName, "logs"))
	v.SetDefault("state_file", filepath.Join(xdg.StateHome, appName, "state.json"))
	v.SetDefault("shell", os.Getenv("SHELL"))
	v.SetDefault("home", home)
	v.SetDefault("bin_dir", "/usr/local/bin")

	v.SetEnvPrefix("DEVSETUP")
	v.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = DefaultConfigFile()
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", cfgFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &s, nil
}
