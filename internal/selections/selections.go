// Package selections loads and saves dub.selections.json, the
// deterministic record of which concrete version (or local path, or
// repository ref) was chosen for each package the resolver touched
// . It also implements the
// inheritance walk a directory without its own selections file uses to
// find one in an ancestor, rewriting path locators for the viewing
// directory along the way.
package selections

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dub-go/dub/internal/dubpath"
	"github.com/dub-go/dub/internal/semver"
)

const fileName = "dub.selections.json"

// CurrentFileVersion is written into every selections file this
// package produces.
const CurrentFileVersion = 1

// LocatorKind distinguishes the three forms a selections entry can
// record, mirroring semver.DependencySpec's locator kinds minus the
// "any" case (a selection is always concrete).
type LocatorKind int

const (
	LocatorVersion LocatorKind = iota
	LocatorPath
	LocatorRepository
)

// Locator is one resolved package's recorded selection.
type Locator struct {
	Kind LocatorKind

	Version semver.Version // valid when Kind == LocatorVersion

	Path dubpath.Path // valid when Kind == LocatorPath

	RepositoryURL string // valid when Kind == LocatorRepository
	Ref           string
}

// MarshalJSON renders a Locator the way dub.selections.json stores it:
// a bare version string for LocatorVersion, or an object carrying
// "path" or "repository"+"version" for the other two kinds.
func (l Locator) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case LocatorVersion:
		return json.Marshal(l.Version.String())
	case LocatorPath:
		return json.Marshal(struct {
			Path string `json:"path"`
		}{l.Path.String()})
	case LocatorRepository:
		return json.Marshal(struct {
			Repository string `json:"repository"`
			Version    string `json:"version,omitempty"`
		}{l.RepositoryURL, l.Ref})
	default:
		return nil, fmt.Errorf("selections: unknown locator kind %d", l.Kind)
	}
}

// UnmarshalJSON accepts either form described by MarshalJSON.
func (l *Locator) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		v, err := semver.ParseVersion(asString)
		if err != nil {
			return fmt.Errorf("selections: invalid version locator %q: %w", asString, err)
		}
		l.Kind = LocatorVersion
		l.Version = v
		return nil
	}

	var asObject struct {
		Path       string `json:"path"`
		Repository string `json:"repository"`
		Version    string `json:"version"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("selections: locator is neither a version string nor an object: %w", err)
	}
	switch {
	case asObject.Path != "":
		l.Kind = LocatorPath
		l.Path = dubpath.New(asObject.Path)
	case asObject.Repository != "":
		l.Kind = LocatorRepository
		l.RepositoryURL = asObject.Repository
		l.Ref = asObject.Version
	default:
		return fmt.Errorf("selections: locator object has neither path nor repository")
	}
	return nil
}

// fileFormat is the literal on-disk shape of dub.selections.json.
type fileFormat struct {
	FileVersion int                `json:"fileVersion"`
	Inheritable bool               `json:"inheritable"`
	Versions    map[string]Locator `json:"versions"`
}

// File is a parsed dub.selections.json, plus the bookkeeping the
// inheritance walk needs: which directory it actually lives in and
// whether it was found there directly or inherited from an ancestor.
type File struct {
	FileVersion int
	Inheritable bool
	Versions    map[string]Locator

	// OwningDir is the directory the file was read from on disk.
	OwningDir string

	// ViewDir is the directory the caller asked to load from. Equal to
	// OwningDir unless the file was inherited, in which case path
	// locators have already been rewritten relative to ViewDir.
	ViewDir string
}

// Load walks up from dir looking for dub.selections.json: the
// first file found is consulted; if it lives above dir and is marked
// inheritable, its path locators are rewritten relative to dir and the
// file on disk is left untouched. A non-inheritable file found above dir
// is not usable from dir — the walk stops there and reports no
// selections, since an intermediate non-inheritable file would have
// blocked the chain anyway (Open Question: resolved as "stop at the
// first file found, regardless of what inheritability looks like
// further up").
// Returns (nil, nil) if no selections file exists anywhere above dir.
func Load(dir string) (*File, error) {
	dir = filepath.Clean(dir)
	cur := dir
	for {
		path := filepath.Join(cur, fileName)
		data, err := os.ReadFile(path)
		if err == nil {
			return parse(data, cur, dir)
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("selections: reading %s: %w", path, err)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, nil
		}
		cur = parent
	}
}

func parse(data []byte, owningDir, viewDir string) (*File, error) {
	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("selections: parsing %s: %w", filepath.Join(owningDir, fileName), err)
	}

	f := &File{
		FileVersion: raw.FileVersion,
		Inheritable: raw.Inheritable,
		Versions:    raw.Versions,
		OwningDir:   owningDir,
		ViewDir:     viewDir,
	}

	if owningDir == viewDir {
		return f, nil
	}
	if !raw.Inheritable {
		return nil, nil
	}

	rewritten := make(map[string]Locator, len(f.Versions))
	for name, loc := range f.Versions {
		if loc.Kind == LocatorPath {
			rel, err := dubpath.Rel(dubpath.New(owningDir), dubpath.New(viewDir), loc.Path)
			if err != nil {
				return nil, fmt.Errorf("selections: rewriting path locator for %q: %w", name, err)
			}
			loc.Path = rel
		}
		rewritten[name] = loc
	}
	f.Versions = rewritten
	return f, nil
}

// New creates an empty, inheritable selections file owned by dir.
func New(dir string) *File {
	return &File{
		FileVersion: CurrentFileVersion,
		Inheritable: true,
		Versions:    make(map[string]Locator),
		OwningDir:   dir,
		ViewDir:     dir,
	}
}

// Save writes f to its OwningDir, atomically (temp file then rename).
func (f *File) Save() error {
	raw := fileFormat{
		FileVersion: f.FileVersion,
		Inheritable: f.Inheritable,
		Versions:    f.Versions,
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("selections: encoding: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(f.OwningDir, fileName)
	tmp, err := os.CreateTemp(f.OwningDir, ".dub.selections.json.tmp-*")
	if err != nil {
		return fmt.Errorf("selections: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("selections: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("selections: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("selections: renaming into place: %w", err)
	}
	return nil
}

// Upgrade applies policy-selected locators to the selections file
// owning root, writing a fresh file there if none exists yet. It never
// modifies a selections file found in an ancestor directory — it always targets root
// itself, even when Load(root) resolved to an ancestor's file.
func Upgrade(root string, resolved map[string]Locator) (*File, error) {
	existing, err := Load(root)
	if err != nil {
		return nil, err
	}

	var f *File
	if existing != nil && existing.OwningDir == root {
		f = existing
	} else {
		f = New(root)
	}

	f.Versions = resolved
	if err := f.Save(); err != nil {
		return nil, err
	}
	return f, nil
}
