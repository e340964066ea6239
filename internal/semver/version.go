// Package semver implements the Version and DependencySpec sum types
// and their comparison/matching rules. Concrete semantic versions are
// backed by github.com/Masterminds/semver/v3; branch tags and commit identifiers
// are handled as distinct Kinds alongside it, since neither compares
// against the other.
package semver

import (
	"fmt"
	"strings"

	mastersemver "github.com/Masterminds/semver/v3"
)

// Kind distinguishes the three forms a Version can take.
type Kind int

const (
	KindSemver Kind = iota
	KindBranch
	KindCommit
)

// Version is a closed sum: a semantic version,
// a branch tag ("~name"), or a commit identifier. Only KindSemver
// values compare against each other; branches and commits are
// incomparable with semver and with each other except by exact match.
type Version struct {
	kind   Kind
	semver *mastersemver.Version
	raw    string // branch name (without "~") or commit identifier
}

// ParseVersion parses a version string: a leading
// "~" marks a branch tag; a 40- or 64-hex-character string (typical git
// commit length) is treated as a commit; anything else is parsed as
// semver.
func ParseVersion(s string) (Version, error) {
	switch {
	case strings.HasPrefix(s, "~"):
		name := strings.TrimPrefix(s, "~")
		if name == "" {
			return Version{}, fmt.Errorf("semver: empty branch name in %q", s)
		}
		return Version{kind: KindBranch, raw: name}, nil
	case looksLikeCommit(s):
		return Version{kind: KindCommit, raw: s}, nil
	default:
		v, err := mastersemver.NewVersion(s)
		if err != nil {
			return Version{}, fmt.Errorf("semver: %q is not a valid version: %w", s, err)
		}
		return Version{kind: KindSemver, semver: v}, nil
	}
}

func looksLikeCommit(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func (v Version) Kind() Kind { return v.kind }

func (v Version) String() string {
	switch v.kind {
	case KindBranch:
		return "~" + v.raw
	case KindCommit:
		return v.raw
	default:
		return v.semver.Original()
	}
}

// UnmarshalText implements configdoc.TextUnmarshaler, letting Version
// fields bind directly from a scalar document value.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// IsPrerelease reports whether a semver Version carries a prerelease
// component; always false for branch/commit versions.
func (v Version) IsPrerelease() bool {
	return v.kind == KindSemver && v.semver.Prerelease() != ""
}

// Compare orders two versions. Only same-kind KindSemver comparisons
// are meaningful; any other pairing returns 0 ("incomparable") unless
// the two values are exactly equal, in which case it still returns 0 —
// callers needing exact-match semantics for branch/commit should use
// Equal instead of relying on Compare's return value.
func (v Version) Compare(other Version) int {
	if v.kind == KindSemver && other.kind == KindSemver {
		return v.semver.Compare(other.semver)
	}
	return 0
}

// Equal reports exact equality: same kind and same underlying value.
func (v Version) Equal(other Version) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindSemver:
		return v.semver.Equal(other.semver)
	default:
		return v.raw == other.raw
	}
}
