// Package buildcache implements the per-target artifact cache:
// identity-keyed artifact reuse, a diagnostics database per build
// directory, at-most-one-concurrent-build discipline via a file lock,
// and the compiler driver invocation contract (response file, streamed
// output, cleanup on failure). Installs are atomic: write to a staging
// sibling, rename into place, only then update the database.
package buildcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dub-go/dub/internal/config"
)

// Entry is one identity's persisted build record.
type Entry struct {
	Identity           string    `json:"identity"`
	ArtifactDir        string    `json:"artifact_dir"`
	Compiler           string    `json:"compiler"`
	Flags              []string  `json:"flags"`
	UpstreamIdentities []string  `json:"upstream_identities"`
	BuiltAt            time.Time `json:"built_at"`
}

type database struct {
	Entries map[string]Entry `json:"entries"`
}

// Store is the cache for one name/version/configuration directory.
type Store struct {
	cfg        *config.Config
	name       string
	version    string
	configName string
}

// Open returns the Store for the given target coordinates, creating
// its directory if necessary.
func Open(cfg *config.Config, name, version, configName string) (*Store, error) {
	dir := cfg.BuildCacheDir(name, version, configName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("buildcache: creating %s: %w", dir, err)
	}
	return &Store{cfg: cfg, name: name, version: version, configName: configName}, nil
}

func (s *Store) dir() string {
	return s.cfg.BuildCacheDir(s.name, s.version, s.configName)
}

func (s *Store) dbPath() string {
	return filepath.Join(s.dir(), "db.json")
}

func (s *Store) loadDB() (database, error) {
	data, err := os.ReadFile(s.dbPath())
	if os.IsNotExist(err) {
		return database{Entries: map[string]Entry{}}, nil
	}
	if err != nil {
		return database{}, fmt.Errorf("buildcache: reading %s: %w", s.dbPath(), err)
	}
	var db database
	if err := json.Unmarshal(data, &db); err != nil {
		return database{}, fmt.Errorf("buildcache: parsing %s: %w", s.dbPath(), err)
	}
	if db.Entries == nil {
		db.Entries = map[string]Entry{}
	}
	return db, nil
}

// saveDB writes db atomically: temp file in the same directory, then
// rename (same two-phase pattern as selections.Save and
// pkgmanager.saveOverrides).
func (s *Store) saveDB(db database) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("buildcache: encoding %s: %w", s.dbPath(), err)
	}
	tmp, err := os.CreateTemp(s.dir(), ".db.json.tmp-*")
	if err != nil {
		return fmt.Errorf("buildcache: creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("buildcache: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("buildcache: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.dbPath()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("buildcache: renaming db.json into place: %w", err)
	}
	return nil
}

// Lookup returns the cached entry for identity, if its artifact
// directory still exists on disk. A record whose artifact directory
// has been removed (e.g. by `dub clean`) is treated as a miss rather
// than an error.
func (s *Store) Lookup(identity string) (Entry, bool, error) {
	db, err := s.loadDB()
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := db.Entries[identity]
	if !ok {
		return Entry{}, false, nil
	}
	if _, err := os.Stat(entry.ArtifactDir); err != nil {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Install moves stagingDir into its final content-hash-named location
// under the store and records entry in db.json, in that order.
func (s *Store) Install(identity, stagingDir string, entry Entry) (Entry, error) {
	finalDir := filepath.Join(s.dir(), "artifacts", identity)
	if err := os.MkdirAll(filepath.Dir(finalDir), 0755); err != nil {
		return Entry{}, fmt.Errorf("buildcache: creating artifacts directory: %w", err)
	}
	os.RemoveAll(finalDir) // a stale entry whose db record was lost; rename would fail if it still exists
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return Entry{}, fmt.Errorf("buildcache: installing artifact for %s: %w", identity, err)
	}

	entry.Identity = identity
	entry.ArtifactDir = finalDir
	entry.BuiltAt = now()

	db, err := s.loadDB()
	if err != nil {
		return Entry{}, err
	}
	db.Entries[identity] = entry
	if err := s.saveDB(db); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// now is a seam so tests can observe BuiltAt deterministically if ever
// needed; production code just wants wall-clock time.
var now = time.Now
