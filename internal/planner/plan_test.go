package planner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dub-go/dub/internal/dubpath"
	"github.com/dub-go/dub/internal/platform"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/selections"
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

func testPlatform() platform.Platform {
	return platform.NewTarget("linux", "x86_64", "", "dmd")
}

func buildFixture(t *testing.T) (root *recipe.Recipe, rootDir string, selected map[string]selections.Locator) {
	t.Helper()
	rootDir = t.TempDir()
	libDir := filepath.Join(rootDir, "lib")

	writeFile(t, filepath.Join(libDir, "src", "lib.d"), "module lib;\n")
	writeFile(t, filepath.Join(libDir, "recipe.json"), `{
		"name": "mylib",
		"version": "1.0.0",
		"targetType": "sourceLibrary",
		"sourceFiles": ["src/lib.d"],
		"importPaths": ["src"]
	}`)

	writeFile(t, filepath.Join(rootDir, "src", "main.d"), "void main() {}\n")
	writeFile(t, filepath.Join(rootDir, "recipe.json"), `{
		"name": "myapp",
		"targetType": "executable",
		"mainSourceFile": "src/main.d",
		"sourceFiles": ["src/main.d"],
		"dependencies": {"mylib": {"path": "lib"}}
	}`)

	r, err := recipe.Load(rootDir)
	if err != nil {
		t.Fatal(err)
	}

	selected = map[string]selections.Locator{
		"mylib": {Kind: selections.LocatorPath, Path: dubpath.New("lib")},
	}
	return r, rootDir, selected
}

func TestPlan_TopologicalOrderAndSettingsMerge(t *testing.T) {
	root, rootDir, selected := buildFixture(t)

	targets, err := Plan(Input{
		Root:       root,
		RootDir:    rootDir,
		Selected:   selected,
		Platform:   testPlatform(),
		CompilerID: "dmd-2.109.0",
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("targets = %+v, want 2", targets)
	}
	if targets[0].Name != "mylib" {
		t.Errorf("targets[0].Name = %q, want mylib (dependency built first)", targets[0].Name)
	}
	if targets[1].Name != "myapp" {
		t.Errorf("targets[1].Name = %q, want myapp", targets[1].Name)
	}

	app := targets[1]
	found := false
	for _, ip := range app.Settings.ImportPaths {
		if ip == "src" {
			found = true
		}
	}
	if !found {
		t.Errorf("myapp's merged ImportPaths = %v, want to include mylib's \"src\"", app.Settings.ImportPaths)
	}
}

func TestPlan_StaticLibraryDependencyContributesSettingsNotSources(t *testing.T) {
	rootDir := t.TempDir()
	libDir := filepath.Join(rootDir, "lib")

	writeFile(t, filepath.Join(libDir, "src", "lib.d"), "module lib;\n")
	writeFile(t, filepath.Join(libDir, "recipe.json"), `{
		"name": "mylib",
		"version": "1.0.0",
		"targetType": "staticLibrary",
		"sourceFiles": ["src/lib.d"],
		"importPaths": ["src"],
		"lflags": ["-depflag"],
		"libs": "z"
	}`)

	writeFile(t, filepath.Join(rootDir, "src", "main.d"), "void main() {}\n")
	writeFile(t, filepath.Join(rootDir, "recipe.json"), `{
		"name": "myapp",
		"targetType": "executable",
		"mainSourceFile": "src/main.d",
		"sourceFiles": ["src/main.d"],
		"lflags": ["-ownflag"],
		"dependencies": {"mylib": {"path": "lib"}}
	}`)

	root, err := recipe.Load(rootDir)
	if err != nil {
		t.Fatal(err)
	}
	selected := map[string]selections.Locator{
		"mylib": {Kind: selections.LocatorPath, Path: dubpath.New("lib")},
	}

	targets, err := Plan(Input{
		Root:       root,
		RootDir:    rootDir,
		Selected:   selected,
		Platform:   testPlatform(),
		CompilerID: "dmd-2.109.0",
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("targets = %+v, want 2", targets)
	}
	lib, app := targets[0], targets[1]

	// The library's import paths still flow to the dependent, but its
	// sources are replaced by the artifact as a link input.
	found := false
	for _, ip := range app.Settings.ImportPaths {
		if ip == "src" {
			found = true
		}
	}
	if !found {
		t.Errorf("ImportPaths = %v, want to include mylib's \"src\"", app.Settings.ImportPaths)
	}
	for _, s := range app.Settings.SourceFiles {
		if s == "src/lib.d" {
			t.Errorf("SourceFiles = %v, must not include the static library's sources", app.Settings.SourceFiles)
		}
	}
	found = false
	for _, li := range app.LinkInputs {
		if li == lib.Identity {
			found = true
		}
	}
	if !found {
		t.Errorf("LinkInputs = %v, want to include mylib's identity %q", app.LinkInputs, lib.Identity)
	}

	// Link inputs follow the dependent's own entries.
	if len(app.Settings.LFlags) != 2 || app.Settings.LFlags[0] != "-ownflag" || app.Settings.LFlags[1] != "-depflag" {
		t.Errorf("LFlags = %v, want [-ownflag -depflag]", app.Settings.LFlags)
	}
	if app.Settings.Libs[""] != "z" {
		t.Errorf("Libs = %v, want the library's libz entry to flow through", app.Settings.Libs)
	}

	// Non-propagating settings stay the dependent's own.
	if app.TargetType != recipe.TargetExecutable {
		t.Errorf("TargetType = %q, want executable despite the staticLibrary dependency", app.TargetType)
	}
	if got := app.Settings.MainSourceFile.Get(""); got != "src/main.d" {
		t.Errorf("MainSourceFile = %q, want src/main.d", got)
	}
}

func TestPlan_LibsFilteredByPlatformSuffix(t *testing.T) {
	rootDir := t.TempDir()
	writeFile(t, filepath.Join(rootDir, "src", "main.d"), "void main() {}\n")
	writeFile(t, filepath.Join(rootDir, "recipe.json"), `{
		"name": "myapp",
		"targetType": "executable",
		"mainSourceFile": "src/main.d",
		"sourceFiles": ["src/main.d"],
		"libs": "z",
		"libs-windows": "ws2_32"
	}`)
	root, err := recipe.Load(rootDir)
	if err != nil {
		t.Fatal(err)
	}

	targets, err := Plan(Input{Root: root, RootDir: rootDir, Platform: testPlatform()})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	libs := targets[0].Settings.Libs
	if libs[""] != "z" {
		t.Errorf("Libs = %v, want the unconditional libz entry kept", libs)
	}
	if _, ok := libs["windows"]; ok {
		t.Errorf("Libs = %v, want the windows-only entry dropped on linux", libs)
	}
}

func TestComputeIdentity_StableUnderMtimeChangeWithHashPolicy(t *testing.T) {
	root, rootDir, selected := buildFixture(t)
	in := Input{Root: root, RootDir: rootDir, Selected: selected, Platform: testPlatform(), CompilerID: "dmd", Policy: HashBased}

	before, err := Plan(in)
	if err != nil {
		t.Fatal(err)
	}

	mainFile := filepath.Join(rootDir, "src", "main.d")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(mainFile, future, future); err != nil {
		t.Fatal(err)
	}

	after, err := Plan(in)
	if err != nil {
		t.Fatal(err)
	}

	if before[1].Identity != after[1].Identity {
		t.Errorf("hash-policy identity changed after only an mtime bump: %q != %q", before[1].Identity, after[1].Identity)
	}
}

func TestComputeIdentity_ChangesWithContentUnderHashPolicy(t *testing.T) {
	root, rootDir, selected := buildFixture(t)
	in := Input{Root: root, RootDir: rootDir, Selected: selected, Platform: testPlatform(), CompilerID: "dmd", Policy: HashBased}

	before, err := Plan(in)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(rootDir, "src", "main.d"), "void main() { /* changed */ }\n")

	after, err := Plan(in)
	if err != nil {
		t.Fatal(err)
	}

	if before[1].Identity == after[1].Identity {
		t.Error("hash-policy identity unchanged after source content changed")
	}
}

func TestComputeIdentity_ChangesWithLibcTag(t *testing.T) {
	root, rootDir, selected := buildFixture(t)

	glibc := Input{Root: root, RootDir: rootDir, Selected: selected, Platform: testPlatform(), CompilerID: "dmd", Policy: HashBased}
	musl := glibc
	musl.Platform = platform.NewTarget("linux", "x86_64", "", "dmd")
	musl.Platform.Tags = append(musl.Platform.Tags, "musl")

	glibcPlan, err := Plan(glibc)
	if err != nil {
		t.Fatal(err)
	}
	muslPlan, err := Plan(musl)
	if err != nil {
		t.Fatal(err)
	}

	if glibcPlan[1].Identity == muslPlan[1].Identity {
		t.Error("build identity unchanged between a glibc and a musl host, despite producing incompatible artifacts")
	}
}

func TestComputeIdentity_ChangesWithMtimeUnderTimePolicy(t *testing.T) {
	root, rootDir, selected := buildFixture(t)
	in := Input{Root: root, RootDir: rootDir, Selected: selected, Platform: testPlatform(), CompilerID: "dmd", Policy: TimeBased}

	before, err := Plan(in)
	if err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(time.Hour)
	mainFile := filepath.Join(rootDir, "src", "main.d")
	if err := os.Chtimes(mainFile, future, future); err != nil {
		t.Fatal(err)
	}

	after, err := Plan(in)
	if err != nil {
		t.Fatal(err)
	}

	if before[1].Identity == after[1].Identity {
		t.Error("time-policy identity unchanged after mtime bump")
	}
}

func TestPlan_NoMatchingConfiguration(t *testing.T) {
	rootDir := t.TempDir()
	writeFile(t, filepath.Join(rootDir, "src", "main.d"), "void main() {}\n")
	writeFile(t, filepath.Join(rootDir, "recipe.json"), `{
		"name": "myapp",
		"targetType": "executable",
		"mainSourceFile": "src/main.d",
		"sourceFiles": ["src/main.d"],
		"configurations": [
			{"name": "windows-only", "platforms": "windows"}
		]
	}`)
	root, err := recipe.Load(rootDir)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Plan(Input{Root: root, RootDir: rootDir, Platform: testPlatform()})
	if err == nil {
		t.Fatal("Plan() error = nil, want NoMatchingConfiguration")
	}
}
