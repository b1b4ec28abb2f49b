package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
)

// envFiles are loaded in order; variables already present in the process win.
var envFiles = []string{".env", ".env.local"}

// Load reads the configuration file, expands ${VAR} references and applies defaults.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	cfg.Path = configPath
	applyDefaults(cfg)
	return cfg, nil
}

// LoadOrDefault loads configPath when it exists. A missing file is only an
// error when the caller asked for it explicitly.
func LoadOrDefault(configPath string, explicit bool) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) && !explicit {
		loadEnvFiles(".")
		return Default(), nil
	}
	return Load(configPath)
}

func loadEnvFiles(dir string) {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Note: couldn't load %s: %v\n", path, err)
		}
	}
}
