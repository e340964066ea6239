package buildcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dub-go/dub/internal/config"
)

func TestSweepRemovesUnreachableEntries(t *testing.T) {
	cfg := testConfig(t)

	keep, err := Open(cfg, "myapp", "1.0.0", "default")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := keep.Install("kept", mustStaging(t, cfg, "keep-staging"), Entry{}); err != nil {
		t.Fatal(err)
	}

	stale, err := Open(cfg, "oldlib", "0.9.0", "default")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stale.Install("stale", mustStaging(t, cfg, "stale-staging"), Entry{}); err != nil {
		t.Fatal(err)
	}

	result, err := Sweep(cfg, []Reachable{{Name: "myapp", Version: "1.0.0", ConfigName: "default"}})
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(result.RemovedDirs) != 1 {
		t.Fatalf("RemovedDirs = %v, want exactly one entry", result.RemovedDirs)
	}

	if _, ok, err := keep.Lookup("kept"); err != nil || !ok {
		t.Errorf("Sweep() removed a reachable entry: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(cfg.BuildCacheDir("oldlib", "0.9.0", "default")); !os.IsNotExist(err) {
		t.Error("Sweep() left an unreachable cache directory behind")
	}
}

func TestSweepIsNoopOnEmptyCache(t *testing.T) {
	cfg := testConfig(t)
	result, err := Sweep(cfg, nil)
	if err != nil {
		t.Fatalf("Sweep() on empty cache error = %v", err)
	}
	if len(result.RemovedDirs) != 0 {
		t.Errorf("RemovedDirs = %v, want none", result.RemovedDirs)
	}
}

func mustStaging(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	dir := filepath.Join(cfg.TmpDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "artifact"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}
