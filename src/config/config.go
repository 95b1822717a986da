package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
	"autonomity/src/utils/general"
)

const EnvPrefix = "SIM"

// Load reads CONFIG_PATH, or config.local.yaml at the repository root when
// unset. A missing default file is not an error; defaults and SIM_* env vars
// still apply.
func Load() (*datamodels.AutonomityConfig, error) {
	configPath := os.Getenv("CONFIG_PATH")
	required := configPath != ""
	if !required {
		currentDir := general.GetCurrentDir()
		// go up two levels to the repository root
		configPath = filepath.Join(currentDir, "..", "..", "config.local.yaml")
	}
	return LoadFrom(configPath, required)
}

func LoadFrom(configPath string, required bool) (*datamodels.AutonomityConfig, error) {
	v := viper.New()
	datamodels.SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil || required {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "cannot read config %s", configPath)
		}
		slog.Info("Loaded config", "path", configPath)
	} else {
		slog.Warn("No config file found, using defaults", "path", configPath)
	}

	var autonomityConfig datamodels.AutonomityConfig
	if err := v.Unmarshal(&autonomityConfig); err != nil {
		return nil, errors.Wrapf(err, "cannot decode config %s", configPath)
	}
	if err := autonomityConfig.Validate(); err != nil {
		return nil, err
	}

	return &autonomityConfig, nil
}
