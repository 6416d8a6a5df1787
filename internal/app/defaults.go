package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first. Environment variables:
//   - FDB_CONFIG_PATH: config file location (default: ~/.config/fdb.toml)
//   - FDB_HOME: base directory for fdb data (default: ~/.local/share/fdb)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"data_dir":    filepath.Join(baseDir, "data"),
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking FDB_CONFIG_PATH env
// var first, then falling back to the default ~/.config/fdb.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("FDB_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "fdb.toml"), nil
}

// getBaseDir returns the base directory for fdb data, checking FDB_HOME env
// var first, then falling back to the XDG default ~/.local/share/fdb.
func getBaseDir() (string, error) {
	if path := os.Getenv("FDB_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "fdb"), nil
}
