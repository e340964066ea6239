package semver

import (
	"fmt"
	"strings"

	mastersemver "github.com/Masterminds/semver/v3"
)

// Range is a semver constraint: inclusive/exclusive bounds and the
// caret/tilde shorthand forms. It wraps Masterminds/semver's own
// constraint syntax, which already supports ">=", "<", "^", "~", and
// range composition with commas and spaces.
type Range struct {
	constraint *mastersemver.Constraints
	raw        string
}

// ParseRange parses a constraint expression such as "~>1.2.3",
// ">=1.0.0 <2.0.0", or "^1.2".
func ParseRange(s string) (Range, error) {
	c, err := mastersemver.NewConstraint(translateTilde(s))
	if err != nil {
		return Range{}, fmt.Errorf("semver: %q is not a valid range: %w", s, err)
	}
	return Range{constraint: c, raw: s}, nil
}

// translateTilde rewrites the dub-style "~>" shorthand into
// Masterminds/semver's operators, which bump a different component:
// "~>1.2.3" fixes major.minor (">=1.2.3 <1.3.0", Masterminds "~"),
// while "~>1.2" fixes only the major (">=1.2.0 <2.0.0", Masterminds
// "^" semantics), so the operator has to be chosen per occurrence by
// how many components the version carries.
func translateTilde(s string) string {
	for {
		i := strings.Index(s, "~>")
		if i < 0 {
			return s
		}
		j := i + 2
		for j < len(s) && !strings.ContainsRune(" ,|", rune(s[j])) {
			j++
		}
		ver := s[i+2 : j]
		op := "~"
		if strings.Count(strings.SplitN(strings.SplitN(ver, "-", 2)[0], "+", 2)[0], ".") < 2 {
			op = "^"
		}
		s = s[:i] + op + ver + s[j:]
	}
}

func (r Range) String() string { return r.raw }

// Matches reports whether v satisfies the range. Branch and commit
// versions never satisfy a semver range directly; they are only
// checked against a range when they carry an explicit pin (see
// DependencySpec.CompatiblePin), which is a distinct code path.
func (r Range) Matches(v Version) bool {
	if v.kind != KindSemver {
		return false
	}
	return r.constraint.Check(v.semver)
}

// matchesForSelection is the candidate test Best uses. The upstream
// matcher categorically refuses a prerelease unless the constraint
// itself names one, which would leave the all-prerelease fallback in
// Best unreachable: a range like "~>1.0" over a catalog holding only
// "1.0.2-pre" would match nothing and fail resolution outright. A
// prerelease candidate is instead admitted when its release form
// satisfies the constraint; the stable-preferred split in Best then
// decides whether it may actually win.
func (r Range) matchesForSelection(v Version) bool {
	if v.kind != KindSemver {
		return false
	}
	if !v.IsPrerelease() {
		return r.constraint.Check(v.semver)
	}
	release := mastersemver.New(v.semver.Major(), v.semver.Minor(), v.semver.Patch(), "", "")
	return r.constraint.Check(release)
}

// Best picks the greatest
// semver-matching version; ignore prereleases unless every match is a
// prerelease (in which case prereleases are eligible after all) or the
// caller opts in via allowPrerelease.
func (r Range) Best(candidates []Version, allowPrerelease bool) (Version, bool) {
	var matches []Version
	for _, c := range candidates {
		if r.matchesForSelection(c) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return Version{}, false
	}

	var stable []Version
	for _, m := range matches {
		if !m.IsPrerelease() {
			stable = append(stable, m)
		}
	}
	pool := matches
	if !allowPrerelease && len(stable) > 0 {
		pool = stable
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if c.Compare(best) > 0 {
			best = c
		}
	}
	return best, true
}
