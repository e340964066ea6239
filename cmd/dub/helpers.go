package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dub-go/dub/internal/config"
	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/errmsg"
	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/platform"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/selections"
	"github.com/dub-go/dub/internal/semver"
	"github.com/dub-go/dub/internal/supplier"
)

// printInfo prints unless quiet/vquiet mode suppresses it.
func printInfo(a ...interface{}) {
	if !quietFlag && !vquietFlag {
		fmt.Println(a...)
	}
}

func printInfof(format string, a ...interface{}) {
	if !quietFlag && !vquietFlag {
		fmt.Printf(format, a...)
	}
}

// printError formats err through internal/errmsg so resolution,
// supplier, and cycle failures surface with the same suggestions the
// rest of the suite's tests expect, unless --vquiet asked for total
// silence.
func printError(err error) {
	if vquietFlag {
		return
	}
	fmt.Fprintln(os.Stderr, errmsg.Format(err, nil))
}

// dubConfig resolves the cache-root Config honoring --cache's
// location choice:
// "local" roots the cache under the project directory instead of
// $DUB_HOME, so CI and containerized builds never touch a shared
// home directory.
func dubConfig() (*config.Config, error) {
	if cacheFlag == "local" {
		dir, err := filepath.Abs(filepath.Join(rootFlag, ".dub"))
		if err != nil {
			return nil, err
		}
		return &config.Config{
			HomeDir:      dir,
			PackagesDir:  filepath.Join(dir, "packages"),
			CacheDir:     filepath.Join(dir, "cache"),
			TmpDir:       filepath.Join(dir, "tmp"),
			SettingsFile: filepath.Join(dir, "settings.json"),
		}, nil
	}
	cfg, err := config.DefaultConfig()
	if err != nil {
		return nil, err
	}
	if cacheFlag == "system" {
		cfg.HomeDir = "/var/lib/dub"
		cfg.PackagesDir = filepath.Join(cfg.HomeDir, "packages")
		cfg.CacheDir = filepath.Join(cfg.HomeDir, "cache")
		cfg.TmpDir = filepath.Join(cfg.HomeDir, "tmp")
		cfg.SettingsFile = filepath.Join(cfg.HomeDir, "settings.json")
	}
	return cfg, nil
}

// currentPlatform resolves the host Platform descriptor, using
// --compiler (falling back to the $DC/$DMD/$HOST_DC chain) as the
// compiler identity folded into it.
func currentPlatform() (platform.Platform, string, error) {
	compilerName := compilerFlag
	if compilerName == "" {
		compilerName = config.CompilerOverride()
	}
	if compilerName == "" {
		compilerName = "dmd"
	}
	p, err := platform.DetectTarget(compilerName)
	if err != nil {
		return platform.Platform{}, "", fmt.Errorf("detecting host platform: %w", err)
	}
	if archFlag != "" {
		p.ArchTags = []string{archFlag}
	}
	return p, compilerName, nil
}

// loadRootRecipe loads the project recipe at --root. A --root that
// names a source file rather than a directory is treated as a
// single-file package: the file's leading comment block must embed a
// recipe document, and the file itself becomes the whole source list.
func loadRootRecipe() (*recipe.Recipe, error) {
	root, err := filepath.Abs(rootFlag)
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(root); statErr == nil && !info.IsDir() && recipe.HasEmbeddedRecipe(root) {
		r, err := recipe.LoadSingleFile(root)
		if err != nil {
			return nil, fmt.Errorf("loading single-file package %s: %w", root, err)
		}
		return r, nil
	}
	r, err := recipe.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading recipe at %s: %w", root, err)
	}
	return r, nil
}

// loadSettings builds the layered Settings view, folding --registry
// and --skip-registry into the transient, highest-priority layer so a
// one-off invocation never needs to edit a settings.json file on disk.
func loadSettings() (selections.Settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	userFile := ""
	if home != "" {
		userFile = filepath.Join(home, ".dub", "settings.json")
	}

	transient := selections.Settings{}
	if len(registryFlag) > 0 {
		transient.RegistryURLs = registryFlag
	}
	if skipRegistryFlag == "all" {
		transient.SkipRegistry = configdoc.Set(true)
	}

	rootDir, err := filepath.Abs(rootFlag)
	if err != nil {
		return selections.Settings{}, err
	}
	return selections.LoadSettings(userFile, rootDir, transient)
}

// buildSuppliers assembles the supplier chain from settings: every
// registry URL becomes a RegistrySupplier (earlier-listed wins ties),
// plus a FilesystemSupplier over every extra package
// path settings accumulated.
func buildSuppliers(s selections.Settings) []supplier.Supplier {
	var suppliers []supplier.Supplier
	if skipRegistryFlag != "all" {
		for _, url := range s.RegistryURLs {
			suppliers = append(suppliers, supplier.NewRegistrySupplier(strings.Fields(url)))
		}
	}
	for _, p := range s.ExtraPackagePaths {
		suppliers = append(suppliers, supplier.NewFilesystemSupplier(p))
	}
	return suppliers
}

// overridesAsVersions converts the pkgmanager's persisted version
// overrides (add-override) into the map resolver.Input.Overrides
// wants, skipping any whose pin fails to parse rather than failing the
// whole command over one bad override.
func overridesAsVersions(mgr *pkgmanager.Manager) map[string]semver.Version {
	out := map[string]semver.Version{}
	list, err := mgr.ListOverrides()
	if err != nil {
		return out
	}
	for _, o := range list {
		if v, err := semver.ParseVersion(o.Version); err == nil {
			out[o.Name] = v
		}
	}
	return out
}

// githubToken resolves an optional token for resolver.NewGitHubResolver
// from a single well-known environment variable.
func githubToken() string {
	return os.Getenv("DUB_GITHUB_TOKEN")
}
