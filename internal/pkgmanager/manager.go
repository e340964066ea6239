package pkgmanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dub-go/dub/internal/config"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/semver"
	"github.com/dub-go/dub/internal/supplier"
)

// Manager is the local view of every package dub knows how to locate:
// the fetched-package cache under cfg.PackagesDir, add-local exact
// registrations, and add-path search directories.
type Manager struct {
	cfg *config.Config
}

// New returns a Manager rooted at cfg's cache directories.
func New(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// packageDir resolves name@version to a directory, checking add-local
// registrations, then add-path search directories, then the fetched
// package cache, in that order (an exact local override always wins,
// since registering one is how a developer tells dub "build against
// my working copy instead of what's fetched"). Returns "" (not an
// error) if name@version isn't available anywhere yet — the caller
// decides whether that means "fetch it" or "not selected."
func (m *Manager) packageDir(name string, version semver.Version) (string, error) {
	t, err := m.loadOverrides()
	if err != nil {
		return "", err
	}

	versionStr := version.String()
	for _, o := range t.Local {
		if o.Name == name && o.Version == versionStr {
			return o.Dir, nil
		}
	}

	for _, searchDir := range t.Paths {
		candidate := filepath.Join(searchDir, name)
		if dirHasRecipe(candidate) {
			r, err := recipe.Load(candidate)
			if err == nil && r.Version == versionStr {
				return candidate, nil
			}
		}
	}

	fetchedDir := m.cfg.PackageDir(name, versionStr)
	if dirHasRecipe(fetchedDir) {
		return fetchedDir, nil
	}

	return "", nil
}

func dirHasRecipe(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Fetch installs name@version into the package cache from s, if it
// isn't already available from a local override, search path, or a
// prior fetch. The archive is unpacked into a temporary sibling
// directory and renamed into place only once fully extracted and
// validated.
func (m *Manager) Fetch(ctx context.Context, s supplier.Supplier, name string, version semver.Version) (*Package, error) {
	if dir, err := m.packageDir(name, version); err != nil {
		return nil, err
	} else if dir != "" {
		r, err := recipe.Load(dir)
		if err != nil {
			return nil, fmt.Errorf("pkgmanager: loading cached %s@%s: %w", name, version, err)
		}
		return &Package{Name: name, Version: version, Dir: dir, Recipe: r}, nil
	}

	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	stagingParent := filepath.Join(m.cfg.TmpDir, fmt.Sprintf("fetch-%s", name))
	if err := os.MkdirAll(stagingParent, 0o755); err != nil {
		return nil, fmt.Errorf("pkgmanager: creating staging directory: %w", err)
	}
	defer os.RemoveAll(stagingParent)

	handle, err := s.Fetch(ctx, name, version, stagingParent)
	if err != nil {
		return nil, fmt.Errorf("pkgmanager: fetching %s@%s from %s: %w", name, version, s.String(), err)
	}

	finalDir := m.cfg.PackageDir(name, version.String())
	if err := os.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return nil, fmt.Errorf("pkgmanager: creating package directory: %w", err)
	}
	if err := os.Rename(handle.Dir, finalDir); err != nil {
		return nil, fmt.Errorf("pkgmanager: installing %s@%s: %w", name, version, err)
	}

	r, err := recipe.Load(finalDir)
	if err != nil {
		return nil, fmt.Errorf("pkgmanager: loading fetched %s@%s: %w", name, version, err)
	}
	return &Package{Name: name, Version: version, Dir: finalDir, Recipe: r}, nil
}

// Remove deletes a fetched package's cache directory. It refuses to
// touch add-local or add-path directories — those are owned by the
// developer, not the cache.
func (m *Manager) Remove(name string, version semver.Version) error {
	fetchedDir := m.cfg.PackageDir(name, version.String())
	if !dirHasRecipe(fetchedDir) {
		return fmt.Errorf("pkgmanager: %s@%s is not a fetched package", name, version)
	}
	// PackageDir nests one level deeper than the version directory
	// (packages/<name>/<version>/<name>); remove the version directory
	// so no empty shell is left behind.
	versionDir := filepath.Dir(fetchedDir)
	if err := os.RemoveAll(versionDir); err != nil {
		return fmt.Errorf("pkgmanager: removing %s@%s: %w", name, version, err)
	}
	return nil
}
