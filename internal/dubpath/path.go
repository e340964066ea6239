// Package dubpath provides a platform-neutral path type used anywhere a
// recipe, selections file, or settings file stores a path. Paths are
// stored internally with forward slashes, the way they are written in
// recipe and selections documents, and rendered with the host OS
// separator only at the filesystem boundary.
package dubpath

import (
	"path"
	"path/filepath"
	"strings"
)

// Path is a slash-separated, platform-neutral path.
//
// A recipe written on Linux and checked out on Windows must resolve to
// the same set of source files; storing paths with forward slashes and
// converting only when talking to the OS achieves that.
type Path string

// New normalizes an OS-specific or mixed-separator string into a Path.
func New(s string) Path {
	return Path(filepath.ToSlash(s))
}

// String returns the slash-separated form, suitable for serialization
// back into a recipe or selections document.
func (p Path) String() string {
	return string(p)
}

// Native renders the path using the host OS's separator, for passing to
// package os / io functions.
func (p Path) Native() string {
	return filepath.FromSlash(string(p))
}

// IsAbs reports whether the path is absolute.
func (p Path) IsAbs() bool {
	return path.IsAbs(string(p)) || filepath.IsAbs(p.Native())
}

// Join joins path elements, normalizing the result to forward slashes.
func Join(elems ...string) Path {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = filepath.ToSlash(e)
	}
	return Path(path.Join(parts...))
}

// Join appends elements to p.
func (p Path) Join(elems ...string) Path {
	all := append([]string{string(p)}, elems...)
	return Join(all...)
}

// Dir returns the path's parent, using slash semantics.
func (p Path) Dir() Path {
	return Path(path.Dir(string(p)))
}

// Base returns the path's final element.
func (p Path) Base() string {
	return path.Base(string(p))
}

// Clean normalizes "." and ".." elements.
func (p Path) Clean() Path {
	return Path(path.Clean(string(p)))
}

// Rel computes a path relative to base, rewritten for a new viewing
// directory. This is the operation used to rewrite an inherited
// selections file's `path:` locators: a `path: foo` recorded in
// an ancestor directory `base` becomes `../foo` when read from a child
// directory `from`.
func Rel(base, from, target Path) (Path, error) {
	baseAbs := path.Join(string(base), string(target))
	rel, err := filepath.Rel(from.Native(), filepath.FromSlash(baseAbs))
	if err != nil {
		return "", err
	}
	return New(rel), nil
}

// Empty reports whether the path has no content.
func (p Path) Empty() bool {
	return strings.TrimSpace(string(p)) == ""
}
