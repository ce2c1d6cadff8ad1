package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Settings captures the app-level knobs Punchcard reads at startup. Session
// configuration (server URL, credentials) is not here; that record lives in
// the persisted state store and is managed by the session layer.
type Settings struct {
	DataDir    string `toml:"data_dir"`
	SyncStore  bool   `toml:"sync_store"`
	CookieFile string `toml:"cookie_file"`
	Theme      string `toml:"theme"`
}

const (
	defaultConfigPath = "~/.config/punchcard/config.toml"
	defaultDataDir    = "~/.local/share/punchcard"
	defaultTheme      = "dark"
)

// DefaultPath returns the default settings file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the settings file, falling back to defaults when
// missing.
func Load(path string) (Settings, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{DataDir: defaultDataDir, Theme: defaultTheme}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			settings.DataDir = mustExpand(settings.DataDir)
			return settings, nil
		}
		return Settings{}, fmt.Errorf("open settings: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	if err := toml.Unmarshal(bytes, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}

	if strings.TrimSpace(settings.DataDir) == "" {
		settings.DataDir = defaultDataDir
	}
	settings.DataDir = mustExpand(settings.DataDir)

	if strings.TrimSpace(settings.Theme) == "" {
		settings.Theme = defaultTheme
	}
	if settings.CookieFile != "" {
		settings.CookieFile = mustExpand(settings.CookieFile)
	}

	return settings, nil
}

// LocalStatePath returns the path of the local key-value store file.
func (s Settings) LocalStatePath() string {
	return filepath.Join(s.DataDir, "state.json")
}

// SyncDBPath returns the path of the synchronized store database.
func (s Settings) SyncDBPath() string {
	return filepath.Join(s.DataDir, "sync.db")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
