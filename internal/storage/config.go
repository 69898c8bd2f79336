package storage

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Backend names accepted in Config.Backend.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// ConfigEnv overrides the config file path.
const ConfigEnv = "CM_CONFIG"

// Config holds application configuration.
type Config struct {
	Backend          string `json:"backend"`
	DataDir          string `json:"dataDir"`
	LogVerbosity     int    `json:"logVerbosity"`
	ListenAddr       string `json:"listenAddr"`
	CheckConcurrency int    `json:"checkConcurrency"`
}

// DefaultConfig returns the default configuration.
// An empty DataDir means the directory holding the config file.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendJSON,
		LogVerbosity:     0,
		ListenAddr:       "127.0.0.1:7411",
		CheckConcurrency: 8,
	}
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			if saveErr := SaveConfig(path, &config); saveErr != nil {
				// Non-fatal: return defaults even if save fails
				logger().Warningf("could not write default config to %s: %s", path, saveErr)
			}
			config.DataDir = filepath.Dir(path)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if config.Backend == "" {
		config.Backend = defaults.Backend
	}
	if config.DataDir == "" {
		config.DataDir = filepath.Dir(path)
	}
	if config.ListenAddr == "" {
		config.ListenAddr = defaults.ListenAddr
	}
	if config.CheckConcurrency <= 0 {
		config.CheckConcurrency = defaults.CheckConcurrency
	}

	return &config, nil
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// DefaultConfigFilePath returns $CM_CONFIG or ~/.config/cm/config.json.
func DefaultConfigFilePath() (string, error) {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p, nil
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}
