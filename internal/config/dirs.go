package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "wallpapergen"

// DefaultDataDir returns the platform-specific config directory.
func DefaultDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support", appName)
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			if home, err := os.UserHomeDir(); err == nil {
				appData = filepath.Join(home, "AppData", "Roaming")
			}
		}
		if appData != "" {
			return filepath.Join(appData, appName)
		}
	default:
		// Follow XDG Base Directory Specification
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			if home, err := os.UserHomeDir(); err == nil {
				configHome = filepath.Join(home, ".config")
			}
		}
		if configHome != "" {
			return filepath.Join(configHome, appName)
		}
	}
	return filepath.Join(".", "."+appName)
}
