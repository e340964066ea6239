// Package pkgmanager owns the local package cache, path overrides
// (add-local/add-path), and the version-override table: everything
// that answers "where does a concrete name+version live on disk, once
// the resolver has decided on it."
package pkgmanager

import (
	"fmt"
	"strings"

	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/semver"
)

// Package is a resolved package or subpackage: a recipe bound to the
// concrete version and directory it was fetched (or overridden) into.
type Package struct {
	// Name is the full identity: "b" for the root package, "b:a" for
	// subpackage "a" of package "b".
	Name    string
	Version semver.Version
	Dir     string
	Recipe  *recipe.Recipe
}

// splitIdentity splits "name" or "name:sub" into its two parts; sub is
// empty for a root package identity.
func splitIdentity(identity string) (name, sub string) {
	if i := strings.IndexByte(identity, ':'); i >= 0 {
		return identity[:i], identity[i+1:]
	}
	return identity, ""
}

// GetPackage resolves identity (a root package name or "name:sub"
// subpackage identity) at version, implementing the subpackage
// visibility contract: a subpackage's
// identity string is distinct from its parent's, and a version lookup
// that doesn't exist for the root package yields nil, nil rather than
// an error, so a resolver asking speculatively ("is b:b at 1.1.0
// available?") doesn't have to distinguish "not found" from "name
// malformed."
func (m *Manager) GetPackage(identity string, version semver.Version) (*Package, error) {
	rootName, subName := splitIdentity(identity)

	dir, err := m.packageDir(rootName, version)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	root, err := recipe.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("pkgmanager: loading %s@%s: %w", rootName, version, err)
	}

	if subName == "" {
		return &Package{Name: rootName, Version: version, Dir: dir, Recipe: root}, nil
	}

	sub, err := root.Subpackage(subName)
	if err != nil {
		return nil, nil // subpackage doesn't exist at this version; not an error to the caller
	}
	return &Package{
		Name:    recipe.Identity(rootName, subName),
		Version: version,
		Dir:     dir,
		Recipe:  sub,
	}, nil
}
