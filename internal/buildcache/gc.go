package buildcache

import (
	"os"
	"path/filepath"

	"github.com/dub-go/dub/internal/config"
	"github.com/dub-go/dub/internal/log"
)

// Reachable names one build identity coordinate that a GC sweep must
// keep: a package name, the exact version directory it was cached
// under, and the configuration name its cache subdirectory is keyed
// by.
type Reachable struct {
	Name       string
	Version    string
	ConfigName string
}

// SweepResult reports what Sweep removed, for `dub clean --gc` to
// summarize reclaimed space.
type SweepResult struct {
	RemovedDirs []string
	BytesFreed  int64
}

// Sweep walks cfg.CacheDir's <name>/<version>/+<config> entries and
// removes every one whose coordinate is absent from keep: an explicit
// reachability sweep, not a blunt RemoveAll, so a stale entry left
// behind by a renamed dependency, a downgraded version, or a deleted
// configuration is reclaimed without touching anything still reachable
// from a known recipe.
func Sweep(cfg *config.Config, keep []Reachable) (SweepResult, error) {
	wanted := make(map[string]bool, len(keep))
	for _, r := range keep {
		wanted[filepath.Join(r.Name, r.Version, "+"+r.ConfigName)] = true
	}

	var result SweepResult
	names, err := os.ReadDir(cfg.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, err
	}

	for _, nameEntry := range names {
		if !nameEntry.IsDir() {
			continue
		}
		namePath := filepath.Join(cfg.CacheDir, nameEntry.Name())

		versions, err := os.ReadDir(namePath)
		if err != nil {
			return result, err
		}
		for _, versionEntry := range versions {
			if !versionEntry.IsDir() {
				continue
			}
			versionPath := filepath.Join(namePath, versionEntry.Name())

			configs, err := os.ReadDir(versionPath)
			if err != nil {
				return result, err
			}
			for _, configEntry := range configs {
				if !configEntry.IsDir() {
					continue
				}
				key := filepath.Join(nameEntry.Name(), versionEntry.Name(), configEntry.Name())
				if wanted[key] {
					continue
				}

				configPath := filepath.Join(versionPath, configEntry.Name())
				size, _ := dirSize(configPath)
				if err := os.RemoveAll(configPath); err != nil {
					return result, err
				}
				log.Default().Debug("swept unreachable cache entry", "identity", key, "bytesFreed", size)
				result.RemovedDirs = append(result.RemovedDirs, configPath)
				result.BytesFreed += size
			}

			pruneIfEmpty(versionPath)
		}

		pruneIfEmpty(namePath)
	}

	return result, nil
}

func pruneIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		os.Remove(dir)
	}
}

func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
