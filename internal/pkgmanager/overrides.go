package pkgmanager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dub-go/dub/internal/semver"
)

// LocalOverride is one `add-local` registration: name@version is
// served directly from Dir instead of the fetched package cache,
// skipping resolution and fetch entirely for that package.
type LocalOverride struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dir     string `json:"dir"`
}

// VersionOverride is one `add-override` registration: any constraint
// the resolver would otherwise satisfy normally for Name instead pins
// to Version, consulted before the resolver runs.
type VersionOverride struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// overrideTables is the on-disk shape of overrides.json, persisted
// under the cache home directory.
type overrideTables struct {
	Local     []LocalOverride   `json:"local"`
	Paths     []string          `json:"paths"`
	Overrides []VersionOverride `json:"overrides"`
}

func (m *Manager) overridesFile() string {
	return filepath.Join(m.cfg.HomeDir, "overrides.json")
}

// loadOverrides reads overrides.json, returning empty tables if it
// doesn't exist yet.
func (m *Manager) loadOverrides() (overrideTables, error) {
	data, err := os.ReadFile(m.overridesFile())
	if os.IsNotExist(err) {
		return overrideTables{}, nil
	}
	if err != nil {
		return overrideTables{}, fmt.Errorf("pkgmanager: reading overrides: %w", err)
	}
	var t overrideTables
	if err := json.Unmarshal(data, &t); err != nil {
		return overrideTables{}, fmt.Errorf("pkgmanager: parsing overrides: %w", err)
	}
	return t, nil
}

// saveOverrides writes t atomically (temp file, then rename), the
// same two-phase write every other persisted dub state file uses.
func (m *Manager) saveOverrides(t overrideTables) error {
	if err := os.MkdirAll(m.cfg.HomeDir, 0o755); err != nil {
		return fmt.Errorf("pkgmanager: creating home directory: %w", err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("pkgmanager: encoding overrides: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(m.cfg.HomeDir, ".overrides.json.tmp-*")
	if err != nil {
		return fmt.Errorf("pkgmanager: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("pkgmanager: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("pkgmanager: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, m.overridesFile()); err != nil {
		return fmt.Errorf("pkgmanager: renaming into place: %w", err)
	}
	return nil
}

// AddLocal registers name@version as served directly from dir,
// replacing any existing registration for the same name+version.
func (m *Manager) AddLocal(name, version, dir string) error {
	t, err := m.loadOverrides()
	if err != nil {
		return err
	}
	filtered := t.Local[:0]
	for _, o := range t.Local {
		if o.Name == name && o.Version == version {
			continue
		}
		filtered = append(filtered, o)
	}
	t.Local = append(filtered, LocalOverride{Name: name, Version: version, Dir: dir})
	return m.saveOverrides(t)
}

// RemoveLocal drops the add-local registration for name@version, if any.
func (m *Manager) RemoveLocal(name, version string) error {
	t, err := m.loadOverrides()
	if err != nil {
		return err
	}
	filtered := t.Local[:0]
	for _, o := range t.Local {
		if o.Name == name && o.Version == version {
			continue
		}
		filtered = append(filtered, o)
	}
	t.Local = filtered
	return m.saveOverrides(t)
}

// ListLocal returns every add-local registration, sorted by name then version.
func (m *Manager) ListLocal() ([]LocalOverride, error) {
	t, err := m.loadOverrides()
	if err != nil {
		return nil, err
	}
	sort.Slice(t.Local, func(i, j int) bool {
		if t.Local[i].Name != t.Local[j].Name {
			return t.Local[i].Name < t.Local[j].Name
		}
		return t.Local[i].Version < t.Local[j].Version
	})
	return t.Local, nil
}

// AddPath registers dir as a package search path (add-path): every
// immediate subdirectory of dir containing a recipe is treated as an
// available package, its version read from the recipe itself.
func (m *Manager) AddPath(dir string) error {
	t, err := m.loadOverrides()
	if err != nil {
		return err
	}
	for _, p := range t.Paths {
		if p == dir {
			return nil
		}
	}
	t.Paths = append(t.Paths, dir)
	return m.saveOverrides(t)
}

// RemovePath drops dir from the package search path list.
func (m *Manager) RemovePath(dir string) error {
	t, err := m.loadOverrides()
	if err != nil {
		return err
	}
	filtered := t.Paths[:0]
	for _, p := range t.Paths {
		if p == dir {
			continue
		}
		filtered = append(filtered, p)
	}
	t.Paths = filtered
	return m.saveOverrides(t)
}

// ListPaths returns every registered search path.
func (m *Manager) ListPaths() ([]string, error) {
	t, err := m.loadOverrides()
	if err != nil {
		return nil, err
	}
	return t.Paths, nil
}

// AddOverride pins name to version ahead of resolution, replacing any
// existing pin for name.
func (m *Manager) AddOverride(name, version string) error {
	t, err := m.loadOverrides()
	if err != nil {
		return err
	}
	filtered := t.Overrides[:0]
	for _, o := range t.Overrides {
		if o.Name == name {
			continue
		}
		filtered = append(filtered, o)
	}
	t.Overrides = append(filtered, VersionOverride{Name: name, Version: version})
	return m.saveOverrides(t)
}

// RemoveOverride drops name's version pin, if any.
func (m *Manager) RemoveOverride(name string) error {
	t, err := m.loadOverrides()
	if err != nil {
		return err
	}
	filtered := t.Overrides[:0]
	for _, o := range t.Overrides {
		if o.Name == name {
			continue
		}
		filtered = append(filtered, o)
	}
	t.Overrides = filtered
	return m.saveOverrides(t)
}

// ListOverrides returns every version override, sorted by name.
func (m *Manager) ListOverrides() ([]VersionOverride, error) {
	t, err := m.loadOverrides()
	if err != nil {
		return nil, err
	}
	sort.Slice(t.Overrides, func(i, j int) bool { return t.Overrides[i].Name < t.Overrides[j].Name })
	return t.Overrides, nil
}

// ResolveOverride returns the pinned version for name and true, or
// ("", false) if name has no version override. The resolver consults
// this before considering any supplier-discovered version.
func (m *Manager) ResolveOverride(name string) (semver.Version, bool, error) {
	t, err := m.loadOverrides()
	if err != nil {
		return semver.Version{}, false, err
	}
	for _, o := range t.Overrides {
		if o.Name == name {
			v, err := semver.ParseVersion(o.Version)
			if err != nil {
				return semver.Version{}, false, fmt.Errorf("pkgmanager: override for %q has invalid version %q: %w", name, o.Version, err)
			}
			return v, true, nil
		}
	}
	return semver.Version{}, false, nil
}
