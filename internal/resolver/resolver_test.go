package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dub-go/dub/internal/config"
	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/selections"
	"github.com/dub-go/dub/internal/semver"
	"github.com/dub-go/dub/internal/supplier"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}

func loadRecipe(t *testing.T, dir, contents string) *recipe.Recipe {
	t.Helper()
	writeFile(t, filepath.Join(dir, "recipe.json"), contents)
	r, err := recipe.Load(dir)
	if err != nil {
		t.Fatalf("recipe.Load(%s) error = %v", dir, err)
	}
	return r
}

// fakeSupplier advertises a fixed set of versions and hands back a
// canned recipe.json for each one, entirely in memory.
type fakeSupplier struct {
	name     string
	versions map[string]string // version string -> recipe.json contents
}

func (f *fakeSupplier) String() string { return f.name }

func (f *fakeSupplier) Describe(ctx context.Context, name string) ([]supplier.VersionInfo, error) {
	if f.versions == nil {
		return nil, &supplier.Error{Kind: supplier.ErrNotFound, Supplier: f.name, Package: name}
	}
	var out []supplier.VersionInfo
	for vs := range f.versions {
		v, err := semver.ParseVersion(vs)
		if err != nil {
			return nil, err
		}
		out = append(out, supplier.VersionInfo{Version: v})
	}
	return out, nil
}

func (f *fakeSupplier) Fetch(ctx context.Context, name string, version semver.Version, destDir string) (supplier.PackageHandle, error) {
	contents := f.versions[version.String()]
	unpackDir := filepath.Join(destDir, name+"-"+version.String())
	if err := os.MkdirAll(unpackDir, 0755); err != nil {
		return supplier.PackageHandle{}, err
	}
	if err := os.WriteFile(filepath.Join(unpackDir, "recipe.json"), []byte(contents), 0644); err != nil {
		return supplier.PackageHandle{}, err
	}
	return supplier.PackageHandle{Dir: unpackDir, Version: version, Checksum: "deadbeef"}, nil
}

func testManager(t *testing.T) *pkgmanager.Manager {
	t.Helper()
	home := t.TempDir()
	return pkgmanager.New(&config.Config{
		HomeDir:     home,
		PackagesDir: filepath.Join(home, "packages"),
		CacheDir:    filepath.Join(home, "cache"),
		TmpDir:      filepath.Join(home, "tmp"),
	})
}

func TestResolve_SimpleVersionSelection(t *testing.T) {
	dir := t.TempDir()
	root := loadRecipe(t, dir, `{
		"name": "root",
		"targetType": "sourceLibrary",
		"dependencies": {"vibe-d": "~>1.0.0"}
	}`)

	s := &fakeSupplier{name: "fake", versions: map[string]string{
		"1.0.0": `{"name": "vibe-d", "version": "1.0.0", "targetType": "sourceLibrary"}`,
		"1.1.0": `{"name": "vibe-d", "version": "1.1.0", "targetType": "sourceLibrary"}`,
	}}

	selected, err := Resolve(context.Background(), Input{
		Root:      root,
		Suppliers: []supplier.Supplier{s},
		Packages:  testManager(t),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	got, ok := selected["vibe-d"]
	if !ok {
		t.Fatalf("Resolve() did not select vibe-d: %+v", selected)
	}
	if got.Locator.Kind != selections.LocatorVersion || got.Locator.Version.String() != "1.0.0" {
		t.Errorf("vibe-d selection = %+v, want version 1.0.0 (within ~>1.0.0)", got.Locator)
	}
}

func TestResolve_BestVersionTieBreakEarlierSupplierWins(t *testing.T) {
	dir := t.TempDir()
	root := loadRecipe(t, dir, `{
		"name": "root",
		"targetType": "sourceLibrary",
		"dependencies": {"vibe-d": "*"}
	}`)

	first := &fakeSupplier{name: "first", versions: map[string]string{
		"2.0.0": `{"name": "vibe-d", "version": "2.0.0", "targetType": "sourceLibrary"}`,
	}}
	second := &fakeSupplier{name: "second", versions: map[string]string{
		"2.0.0": `{"name": "vibe-d", "version": "2.0.0", "targetType": "sourceLibrary"}`,
	}}

	selected, err := Resolve(context.Background(), Input{
		Root:      root,
		Suppliers: []supplier.Supplier{first, second},
		Packages:  testManager(t),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if selected["vibe-d"].Supplier.String() != "first" {
		t.Errorf("Supplier = %q, want %q (earlier-listed wins a tie)", selected["vibe-d"].Supplier.String(), "first")
	}
}

func TestResolve_DependencyConflictEnumeratesContributors(t *testing.T) {
	dir := t.TempDir()
	root := loadRecipe(t, dir, `{
		"name": "root",
		"targetType": "sourceLibrary",
		"dependencies": {"a": "~>1.0.0", "b": "~>1.0.0"}
	}`)

	s := &fakeSupplier{name: "fake", versions: map[string]string{
		"1.0.0": `{"name": "a", "version": "1.0.0", "targetType": "sourceLibrary", "dependencies": {"shared": "~>1.0.0"}}`,
	}}
	_ = s

	// Build a supplier that serves distinct recipes per name so "a"
	// and "b" each pull in an incompatible constraint on "shared".
	multi := &multiNameSupplier{
		recipes: map[string]map[string]string{
			"a": {"1.0.0": `{"name": "a", "version": "1.0.0", "targetType": "sourceLibrary", "dependencies": {"shared": "~>1.0.0"}}`},
			"b": {"1.0.0": `{"name": "b", "version": "1.0.0", "targetType": "sourceLibrary", "dependencies": {"shared": "~>2.0.0"}}`},
			"shared": {
				"1.0.0": `{"name": "shared", "version": "1.0.0", "targetType": "sourceLibrary"}`,
				"2.0.0": `{"name": "shared", "version": "2.0.0", "targetType": "sourceLibrary"}`,
			},
		},
	}

	_, err := Resolve(context.Background(), Input{
		Root:      root,
		Suppliers: []supplier.Supplier{multi},
		Packages:  testManager(t),
	})
	if err == nil {
		t.Fatal("Resolve() error = nil, want a DependencyConflict on shared")
	}
	conflict, ok := err.(*DependencyConflict)
	if !ok {
		t.Fatalf("error = %T (%v), want *DependencyConflict", err, err)
	}
	if conflict.Name != "shared" {
		t.Errorf("conflict.Name = %q, want %q", conflict.Name, "shared")
	}
	if len(conflict.Contributors) != 2 {
		t.Errorf("conflict.Contributors = %v, want 2 entries", conflict.Contributors)
	}
}

// multiNameSupplier serves a distinct version table per package name.
type multiNameSupplier struct {
	recipes map[string]map[string]string
}

func (m *multiNameSupplier) String() string { return "multi" }

func (m *multiNameSupplier) Describe(ctx context.Context, name string) ([]supplier.VersionInfo, error) {
	versions, ok := m.recipes[name]
	if !ok {
		return nil, &supplier.Error{Kind: supplier.ErrNotFound, Supplier: "multi", Package: name}
	}
	var out []supplier.VersionInfo
	for vs := range versions {
		v, err := semver.ParseVersion(vs)
		if err != nil {
			return nil, err
		}
		out = append(out, supplier.VersionInfo{Version: v})
	}
	return out, nil
}

func (m *multiNameSupplier) Fetch(ctx context.Context, name string, version semver.Version, destDir string) (supplier.PackageHandle, error) {
	contents := m.recipes[name][version.String()]
	unpackDir := filepath.Join(destDir, name+"-"+version.String())
	if err := os.MkdirAll(unpackDir, 0755); err != nil {
		return supplier.PackageHandle{}, err
	}
	if err := os.WriteFile(filepath.Join(unpackDir, "recipe.json"), []byte(contents), 0644); err != nil {
		return supplier.PackageHandle{}, err
	}
	return supplier.PackageHandle{Dir: unpackDir, Version: version, Checksum: "deadbeef"}, nil
}

func TestResolve_NoSupplierMatch(t *testing.T) {
	dir := t.TempDir()
	root := loadRecipe(t, dir, `{
		"name": "root",
		"targetType": "sourceLibrary",
		"dependencies": {"missing-pkg": "~>1.0.0"}
	}`)

	_, err := Resolve(context.Background(), Input{
		Root:      root,
		Suppliers: []supplier.Supplier{&fakeSupplier{name: "empty"}},
		Packages:  testManager(t),
	})
	if err == nil {
		t.Fatal("Resolve() error = nil, want NoSupplierMatch")
	}
	if _, ok := err.(*NoSupplierMatch); !ok {
		t.Fatalf("error = %T (%v), want *NoSupplierMatch", err, err)
	}
}

func TestResolve_PathDependencyCycleDetected(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")

	loadRecipe(t, root, `{
		"name": "root",
		"targetType": "sourceLibrary",
		"dependencies": {"sub": {"path": "sub"}}
	}`)
	loadRecipe(t, sub, `{
		"name": "sub",
		"targetType": "sourceLibrary",
		"dependencies": {"root": {"path": ".."}}
	}`)

	rootRecipe, err := recipe.Load(root)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Resolve(context.Background(), Input{
		Root:     rootRecipe,
		Packages: testManager(t),
	})
	if err == nil {
		t.Fatal("Resolve() error = nil, want a CycleError")
	}
	if _, ok := err.(*CycleError); !ok {
		t.Fatalf("error = %T (%v), want *CycleError", err, err)
	}
}

func TestResolve_PathDependencySelected(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")

	loadRecipe(t, sub, `{"name": "sub", "version": "1.0.0", "targetType": "sourceLibrary"}`)
	rootRecipe := loadRecipe(t, root, `{
		"name": "root",
		"targetType": "sourceLibrary",
		"dependencies": {"sub": {"path": "sub"}}
	}`)

	selected, err := Resolve(context.Background(), Input{
		Root:     rootRecipe,
		Packages: testManager(t),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	got, ok := selected["sub"]
	if !ok || got.Locator.Kind != selections.LocatorPath {
		t.Fatalf("sub selection = %+v, want a path locator", got)
	}
}

func TestResolve_ExistingSelectionReusedUnlessUpgradeAll(t *testing.T) {
	dir := t.TempDir()
	root := loadRecipe(t, dir, `{
		"name": "root",
		"targetType": "sourceLibrary",
		"dependencies": {"vibe-d": "~>1.0.0"}
	}`)

	s := &fakeSupplier{name: "fake", versions: map[string]string{
		"1.0.0": `{"name": "vibe-d", "version": "1.0.0", "targetType": "sourceLibrary"}`,
		"1.0.5": `{"name": "vibe-d", "version": "1.0.5", "targetType": "sourceLibrary"}`,
	}}

	pinned, _ := semver.ParseVersion("1.0.0")
	existing := map[string]selections.Locator{
		"vibe-d": {Kind: selections.LocatorVersion, Version: pinned},
	}

	selected, err := Resolve(context.Background(), Input{
		Root:      root,
		Suppliers: []supplier.Supplier{s},
		Existing:  existing,
		Packages:  testManager(t),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if selected["vibe-d"].Locator.Version.String() != "1.0.0" {
		t.Errorf("selected version = %v, want existing pin 1.0.0 preserved", selected["vibe-d"].Locator.Version)
	}
}

func TestResolve_OverrideWins(t *testing.T) {
	dir := t.TempDir()
	root := loadRecipe(t, dir, `{
		"name": "root",
		"targetType": "sourceLibrary",
		"dependencies": {"vibe-d": "~>1.0.0"}
	}`)

	s := &fakeSupplier{name: "fake", versions: map[string]string{
		"1.0.0": `{"name": "vibe-d", "version": "1.0.0", "targetType": "sourceLibrary"}`,
	}}

	overrideVersion, _ := semver.ParseVersion("9.9.9")
	selected, err := Resolve(context.Background(), Input{
		Root:      root,
		Suppliers: []supplier.Supplier{s},
		Overrides: map[string]semver.Version{"vibe-d": overrideVersion},
		Packages:  testManager(t),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if selected["vibe-d"].Locator.Version.String() != "9.9.9" {
		t.Errorf("selected version = %v, want override 9.9.9", selected["vibe-d"].Locator.Version)
	}
}
