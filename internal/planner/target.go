// Package planner turns a resolved dependency graph into a
// topologically-ordered list of build targets: per-target
// settings merge, platform filtering, target-type cascade, and the
// build-identity fingerprint that internal/buildcache keys artifacts
// by. Each target's analysis is computed once, from every contributing
// source, and handed to callers as a finished record instead of being
// recomputed at every use site.
package planner

import (
	"fmt"

	"github.com/dub-go/dub/internal/recipe"
)

// Target is everything needed to invoke the compiler once: merged settings, the upstream edges
// whose artifacts are link-time inputs, and the identity fingerprint
// that gates cache reuse.
type Target struct {
	Name       string
	SubName    string // "" for a package's main target
	TargetType recipe.TargetType

	// SourceDir is the absolute directory the target's recipe was
	// loaded from; SourceFiles in Settings are relative to it.
	SourceDir string

	Settings recipe.BuildSettings

	// LinkInputs holds the build identities of upstream static/dynamic
	// library targets this target links against, in dependency order
	// (each library's own link inputs before its identity).
	LinkInputs []string

	// UpstreamIdentities holds the build identity of every upstream
	// target this one depends on, deduplicated and sorted, folded into this
	// target's own identity hash.
	UpstreamIdentities []string

	Identity string
}

func (t Target) identityString() string {
	if t.SubName == "" {
		return t.Name
	}
	return recipe.Identity(t.Name, t.SubName)
}

// errNoMatchingConfiguration mirrors resolver.NoMatchingConfiguration.
type errNoMatchingConfiguration struct {
	Name string
}

func (e *errNoMatchingConfiguration) Error() string {
	return fmt.Sprintf("%q declares no configuration compatible with this platform", e.Name)
}
