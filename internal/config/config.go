// Package config resolves dub's ambient, process-level configuration:
// the cache root directory, its derived subdirectories, and a handful
// of environment-driven tunables. This is distinct from the
// declarative configuration engine in internal/configdoc, which binds
// arbitrary document trees (recipes, settings, selections) to typed
// records; this package only answers "where does dub keep its state,
// and what does the environment say about timeouts and the compiler."
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// EnvDubHome overrides the default cache root.
	EnvDubHome = "DUB_HOME"

	// EnvAPITimeout configures the supplier metadata/fetch request timeout.
	EnvAPITimeout = "DUB_API_TIMEOUT"

	// EnvCompiler, EnvDMD, EnvHostDC are the compiler-selection
	// environment variables consulted for bootstrap.
	EnvCompiler = "DC"
	EnvDMD      = "DMD"
	EnvHostDC   = "HOST_DC"

	// EnvDFlags is appended to the compiler command line, never
	// replacing it.
	EnvDFlags = "DFLAGS"

	// DefaultAPITimeout is the default supplier request timeout.
	DefaultAPITimeout = 30 * time.Second
)

// GetAPITimeout returns the configured supplier request timeout from
// DUB_API_TIMEOUT. If unset or invalid, returns DefaultAPITimeout.
// Accepts duration strings like "30s", "1m", "2m30s"; clamps to a
// sane [1s, 10m] range.
func GetAPITimeout() time.Duration {
	envValue := os.Getenv(EnvAPITimeout)
	if envValue == "" {
		return DefaultAPITimeout
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvAPITimeout, envValue, DefaultAPITimeout)
		return DefaultAPITimeout
	}

	if duration < 1*time.Second {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum 1s\n", EnvAPITimeout, duration)
		return 1 * time.Second
	}
	if duration > 10*time.Minute {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum 10m\n", EnvAPITimeout, duration)
		return 10 * time.Minute
	}
	return duration
}

// DFlags returns the extra compiler flags from $DFLAGS, split on
// whitespace, to be appended after every other computed flag.
func DFlags() []string {
	raw := strings.TrimSpace(os.Getenv(EnvDFlags))
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

// CompilerOverride resolves the bootstrap compiler-selection chain:
// $DC first, then $DMD, then $HOST_DC.
func CompilerOverride() string {
	for _, env := range []string{EnvCompiler, EnvDMD, EnvHostDC} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

// DefaultHomeOverride can be set by the binary's main package (via
// ldflags) to change the default home directory for dev builds,
// e.g. ".dub-dev" instead of ".dub". $DUB_HOME still takes precedence.
var DefaultHomeOverride string

// Config holds dub's resolved cache-root layout: packages/<name>/<version>/<name>/…,
// cache/<name>/<version>/+<config>/…, and settings.json.
type Config struct {
	HomeDir      string // $DUB_HOME, default ~/.dub
	PackagesDir  string // $DUB_HOME/packages
	CacheDir     string // $DUB_HOME/cache
	TmpDir       string // $DUB_HOME/tmp
	SettingsFile string // $DUB_HOME/settings.json
}

// DefaultConfig resolves the cache root per $DUB_HOME, falling back to
// DefaultHomeOverride, then to ~/.dub.
func DefaultConfig() (*Config, error) {
	dubHome := os.Getenv(EnvDubHome)
	if dubHome == "" {
		if DefaultHomeOverride != "" {
			dubHome = DefaultHomeOverride
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("config: resolving user home directory: %w", err)
			}
			dubHome = filepath.Join(home, ".dub")
		}
	}

	return &Config{
		HomeDir:      dubHome,
		PackagesDir:  filepath.Join(dubHome, "packages"),
		CacheDir:     filepath.Join(dubHome, "cache"),
		TmpDir:       filepath.Join(dubHome, "tmp"),
		SettingsFile: filepath.Join(dubHome, "settings.json"),
	}, nil
}

// EnsureDirectories creates the cache root and its subdirectories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.HomeDir, c.PackagesDir, c.CacheDir, c.TmpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// PackageDir returns "packages/<name>/<version>/<name>" for a fetched
// package.
func (c *Config) PackageDir(name, version string) string {
	return filepath.Join(c.PackagesDir, name, version, name)
}

// BuildCacheDir returns "cache/<name>/<version>/+<config>" for a
// target's cached artifacts and diagnostics database.
func (c *Config) BuildCacheDir(name, version, configName string) string {
	return filepath.Join(c.CacheDir, name, version, "+"+configName)
}

// ParseByteSize parses a human-readable byte size string into bytes.
// Accepts plain numbers (52428800), KB/K (50K, 50KB), MB/M, GB/G.
// Case-insensitive.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	s = strings.ToUpper(s)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	var numStr, suffix string
	for i, c := range s {
		if c >= '0' && c <= '9' || c == '.' {
			numStr += string(c)
		} else {
			suffix = s[i:]
			break
		}
	}
	if numStr == "" {
		return 0, fmt.Errorf("invalid size format: %q", s)
	}
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number: %q", numStr)
	}

	var multiplier float64
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("invalid size suffix: %q", suffix)
	}
	return int64(num * multiplier), nil
}
