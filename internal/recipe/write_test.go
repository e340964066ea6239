package recipe

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/semver"
)

// TestWriteLoadRoundTrip checks the parse/serialize round-trip for
// the subset of a Recipe that Write actually
// serializes: writing a value and loading it back must yield an equal
// value, up to the ordering of additive lists (the dependency map in
// particular has no document-order guarantee once round-tripped
// through a Go map).
func TestWriteLoadRoundTrip(t *testing.T) {
	fooRange, err := semver.ParseRange("~>1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	barRange, err := semver.ParseRange(">=2.0.0")
	if err != nil {
		t.Fatal(err)
	}

	original := &Recipe{
		Name:        "roundtrip-lib",
		Version:     "1.2.3",
		Description: "a library used to exercise Write/Load symmetry",
		License:     "MIT",
		Settings: BuildSettings{
			SourceFiles: []string{"src/a.d", "src/b.d", "src/c.d"},
			TargetType:  configdoc.Set(TargetSourceLibrary),
		},
		Dependencies: map[string]semver.DependencySpec{
			"foo": {Range: fooRange},
			"bar": {Range: barRange},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.yaml")
	if err := Write(original, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	diff := cmp.Diff(original, loaded,
		cmpopts.IgnoreFields(Recipe{}, "SourcePath"),
		cmp.Comparer(func(a, b semver.DependencySpec) bool {
			return a.Range.String() == b.Range.String()
		}),
		cmpopts.SortSlices(func(a, b string) bool { return a < b }),
		cmp.Comparer(func(a, b configdoc.SetInfo[TargetType]) bool {
			return a.Get(TargetSourceLibrary) == b.Get(TargetSourceLibrary)
		}),
	)
	if diff != "" {
		t.Errorf("Write/Load round trip changed the recipe (-original +loaded):\n%s", diff)
	}
}

// TestWriteLoadRoundTripOmitsEmptyFields confirms Write's documented
// behavior (toDocument's doc comment) of only emitting fields that are
// actually set: a minimal recipe round-trips to the same minimal
// shape rather than picking up zero-value noise.
func TestWriteLoadRoundTripOmitsEmptyFields(t *testing.T) {
	original := &Recipe{
		Name: "minimal",
		Settings: BuildSettings{
			TargetType: configdoc.Set(TargetSourceLibrary),
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.yaml")
	if err := Write(original, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Version != "" || loaded.Description != "" || loaded.License != "" {
		t.Errorf("expected empty optional fields to stay empty, got version=%q description=%q license=%q",
			loaded.Version, loaded.Description, loaded.License)
	}
	if len(loaded.Dependencies) != 0 {
		t.Errorf("expected no dependencies, got %v", loaded.Dependencies)
	}
}
