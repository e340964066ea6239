package selections

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/docnode"
)

// Settings is the layered, merged view of dub's settings.json files
// : registry URLs and extra
// package-search paths are additive across layers; the scalar
// preferences use SetInfo so a lower layer's explicit choice survives
// until a higher layer explicitly overrides it.
type Settings struct {
	RegistryURLs      []string          `cfg:"registryUrls,additive"`
	ExtraPackagePaths []string          `cfg:"extraPackagePaths,additive"`
	Environment       map[string]string `cfg:"environment,additive"`

	DefaultCompiler configdoc.SetInfo[string] `cfg:"defaultCompiler"`
	DefaultArch     configdoc.SetInfo[string] `cfg:"defaultArch"`
	LowMemoryMode   configdoc.SetInfo[bool]   `cfg:"lowMemoryMode"`
	SkipRegistry    configdoc.SetInfo[bool]   `cfg:"skipRegistry"`
}

// settingsLayer names the four layers loaded in lowest-to-highest
// precedence order: a system-wide file, the per-user
// home-directory file, the project's own file, and a transient,
// in-process layer the CLI's global flags populate directly (never
// read from disk).
type settingsLayer int

const (
	layerSystem settingsLayer = iota
	layerUser
	layerProject
	layerTransient
)

// SystemSettingsFile is consulted for the system-wide layer; empty
// (no system file) on platforms dub doesn't package a system install
// for.
var SystemSettingsFile = "/etc/dub/settings.json"

// LoadSettings merges the system, user, and project settings.json
// layers (lowest to highest precedence) plus the project's
// ".dub/local.toml" additive override, then applies transient as the
// final, highest-precedence layer. userSettingsFile and projectDir
// locate the user and project layers; projectDir may be empty if
// there is no project context (e.g. a bare `dub list` outside a
// recipe directory).
func LoadSettings(userSettingsFile, projectDir string, transient Settings) (Settings, error) {
	merged := Settings{}

	system, err := loadSettingsFile(SystemSettingsFile)
	if err != nil {
		return Settings{}, err
	}
	merged, err = configdoc.Merge(merged, system)
	if err != nil {
		return Settings{}, fmt.Errorf("selections: merging system settings: %w", err)
	}

	user, err := loadSettingsFile(userSettingsFile)
	if err != nil {
		return Settings{}, err
	}
	merged, err = configdoc.Merge(merged, user)
	if err != nil {
		return Settings{}, fmt.Errorf("selections: merging user settings: %w", err)
	}

	if projectDir != "" {
		project, err := loadSettingsFile(filepath.Join(projectDir, "settings.json"))
		if err != nil {
			return Settings{}, err
		}
		merged, err = configdoc.Merge(merged, project)
		if err != nil {
			return Settings{}, fmt.Errorf("selections: merging project settings: %w", err)
		}

		localOverride, err := loadLocalToml(filepath.Join(projectDir, ".dub", "local.toml"))
		if err != nil {
			return Settings{}, err
		}
		merged, err = configdoc.Merge(merged, localOverride)
		if err != nil {
			return Settings{}, fmt.Errorf("selections: merging local.toml override: %w", err)
		}
	}

	merged, err = configdoc.Merge(merged, transient)
	if err != nil {
		return Settings{}, fmt.Errorf("selections: merging transient settings: %w", err)
	}
	return merged, nil
}

// loadSettingsFile parses a settings.json file through the same
// document-binding engine recipes use, returning a zero Settings (not
// an error) when the file doesn't exist — an absent layer contributes
// nothing, it isn't a failure.
func loadSettingsFile(path string) (Settings, error) {
	if path == "" {
		return Settings{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("selections: reading %s: %w", path, err)
	}

	root, err := docnode.ParseJSON(path, data)
	if err != nil {
		return Settings{}, fmt.Errorf("selections: parsing %s: %w", path, err)
	}
	parsed, err := configdoc.Parse[Settings](root, configdoc.StrictWarn)
	if err != nil {
		return Settings{}, fmt.Errorf("selections: binding %s: %w", path, err)
	}
	return *parsed, nil
}

// localTomlOverride mirrors Settings' additive fields for the
// ".dub/local.toml" file. It is
// intentionally narrower than Settings — local.toml is meant for
// quick, uncommitted additions (an extra registry mirror, a local
// package-search path), not the scalar preferences.
type localTomlOverride struct {
	RegistryURLs      []string          `toml:"registry_urls"`
	ExtraPackagePaths []string          `toml:"extra_package_paths"`
	Environment       map[string]string `toml:"environment"`
}

func loadLocalToml(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("selections: reading %s: %w", path, err)
	}

	var raw localTomlOverride
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return Settings{}, fmt.Errorf("selections: parsing %s: %w", path, err)
	}
	return Settings{
		RegistryURLs:      raw.RegistryURLs,
		ExtraPackagePaths: raw.ExtraPackagePaths,
		Environment:       raw.Environment,
	}, nil
}
