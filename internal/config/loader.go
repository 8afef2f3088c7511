package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix marks environment variables that override file settings.
	EnvPrefix = "TOOLGATE_"

	// tokenFallbackEnv is read when no token is configured.
	tokenFallbackEnv = "GITHUB_PAT"
)

// ErrPathNotAllowed indicates a config file outside the allowed directories.
var ErrPathNotAllowed = errors.New("config file not in an allowed directory")

// Loader reads configuration files from a fixed set of directories.
type Loader struct {
	// AllowedDirs lists directories a config file may live in.
	AllowedDirs []string
	// DefaultPath is used when Load is called with an empty path.
	DefaultPath string
}

// NewLoader returns a loader for ~/.config/toolgate and /etc/toolgate.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	userDir := filepath.Join(home, ".config", "toolgate")
	return &Loader{
		AllowedDirs: []string{userDir, "/etc/toolgate"},
		DefaultPath: filepath.Join(userDir, "config.yaml"),
	}, nil
}

// LoadWithFile loads configuration with the default loader.
//
// Precedence (highest first):
//  1. TOOLGATE_* environment variables (TOOLGATE_GITHUB_BASE_URL -> github.base_url)
//  2. YAML config file
//  3. Built-in defaults
//
// The file must be 0600 or 0400 and at most 1MB. A missing file is not an
// error.
func LoadWithFile(configPath string) (*Config, error) {
	l, err := NewLoader()
	if err != nil {
		return nil, err
	}
	return l.Load(configPath)
}

// Load reads path (or DefaultPath) and the environment into a validated Config.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		path = l.DefaultPath
	}

	k := koanf.New(".")

	if path != "" {
		if err := l.validatePath(path); err != nil {
			return nil, fmt.Errorf("config path validation failed: %w", err)
		}
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if !cfg.GitHub.Token.IsSet() {
		cfg.GitHub.Token = Secret(os.Getenv(tokenFallbackEnv))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps TOOLGATE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok || section == "" || field == "" {
		return ""
	}
	return section + "." + field
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Validate through the open descriptor to avoid a stat/open race.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validatePath requires path to resolve inside one of AllowedDirs.
func (l *Loader) validatePath(path string) error {
	resolved, err := resolve(path)
	if err != nil {
		return err
	}

	for _, dir := range l.AllowedDirs {
		root, err := resolve(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, resolved)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (allowed: %s)", ErrPathNotAllowed, path, strings.Join(l.AllowedDirs, ", "))
}

// resolve returns the absolute path with symlinks followed where they exist.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if p, err := filepath.EvalSymlinks(abs); err == nil {
		return p, nil
	}
	// The file may not exist yet; resolve its directory instead.
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs)), nil
	}
	return abs, nil
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// EnsureConfigDir creates ~/.config/toolgate with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "toolgate")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}
