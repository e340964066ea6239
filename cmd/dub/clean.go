package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/buildcache"
	"github.com/dub-go/dub/internal/config"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/selections"
	"github.com/dub-go/dub/internal/vfs"
)

var (
	cleanAllFlag bool
	cleanGCFlag  bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached build artifacts for the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadRootRecipe()
		if err != nil {
			return err
		}
		cfg, err := dubConfig()
		if err != nil {
			return err
		}

		if cleanGCFlag {
			return runCleanGC(cfg, root)
		}

		fsys := vfs.OS{}
		version := root.Version
		if version == "" {
			version = "0.0.0"
		}

		target := cfg.CacheDir
		if !cleanAllFlag {
			target = cfg.BuildCacheDir(root.Name, version, configFlag)
		}

		if !fsys.Exists(target) {
			printInfo("Nothing to clean.")
			return nil
		}
		if err := fsys.RemoveAll(target); err != nil {
			return fmt.Errorf("clean: removing %s: %w", target, err)
		}
		printInfof("Removed %s\n", target)
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAllFlag, "all-packages", false, "Remove the entire build cache, not just this project's")
	cleanCmd.Flags().BoolVar(&cleanGCFlag, "gc", false, "Sweep the whole cache for entries no selection reachable from this project's recipe still points at, instead of a blunt removal")
}

// runCleanGC computes which (name, version, +config) cache directories
// this project's recipe and dub.selections.json still reach, then
// sweeps everything else out of the whole cache tree. Unlike the plain clean path, it never
// re-resolves dependencies or touches the network: the existing
// selections file on disk is itself the record of what's reachable.
func runCleanGC(cfg *config.Config, root *recipe.Recipe) error {
	reachable, err := reachableCaches(cfg, root)
	if err != nil {
		return err
	}

	result, err := buildcache.Sweep(cfg, reachable)
	if err != nil {
		return fmt.Errorf("clean --gc: %w", err)
	}

	if len(result.RemovedDirs) == 0 {
		printInfo("Nothing to reclaim; every cache entry is still reachable.")
		return nil
	}
	for _, dir := range result.RemovedDirs {
		printInfof("Removed %s\n", dir)
	}
	printInfof("Reclaimed %s across %d entries.\n", formatByteCount(result.BytesFreed), len(result.RemovedDirs))
	return nil
}

// reachableCaches lists every (name, version, configName) coordinate
// this project's own recipe and its recorded dub.selections.json could
// still select: the root package itself, every package named in the
// selections file, each crossed with every configuration name the root
// recipe declares (plus the unconfigured default), since configFlag
// picks a configuration by name regardless of which package owns it.
func reachableCaches(cfg *config.Config, root *recipe.Recipe) ([]buildcache.Reachable, error) {
	version := root.Version
	if version == "" {
		version = "0.0.0"
	}

	configNames := []string{""}
	for _, c := range root.Configurations {
		configNames = append(configNames, c.Name)
	}

	names := map[string]bool{root.Name: true}
	existing, err := selections.Load(root.SourcePath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		for depName := range existing.Versions {
			names[depName] = true
		}
	}

	var out []buildcache.Reachable
	for name := range names {
		for _, cfgName := range configNames {
			out = append(out, buildcache.Reachable{Name: name, Version: version, ConfigName: cfgName})
		}
	}
	return out, nil
}

// formatByteCount renders n bytes the way a CLI diagnostic line wants
// it: a few significant digits and a unit suffix, never raw byte
// counts for anything over a kilobyte.
func formatByteCount(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
