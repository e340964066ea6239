// Package recipe represents a parsed package recipe and answers "what
// does this package contribute to a build, on this platform, in this
// configuration?". A Recipe is bound from a docnode tree
// by internal/configdoc, the same engine settings and selections files
// use, so the three on-disk recipe formats (JSON, indented-block,
// embedded single-file) all produce the same typed record.
package recipe

import (
	"fmt"
	"regexp"

	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/docnode"
	"github.com/dub-go/dub/internal/platform"
	"github.com/dub-go/dub/internal/semver"
)

// nameGrammar enforces "name matches
// [a-z0-9_-]+, lowercase; subpackage name follows the same grammar".
var nameGrammar = regexp.MustCompile(`^[a-z0-9_-]+$`)

// TargetType is the kind of build output a package produces.
type TargetType string

const (
	TargetExecutable    TargetType = "executable"
	TargetStaticLibrary TargetType = "staticLibrary"
	TargetDynamicLib    TargetType = "dynamicLibrary"
	TargetSourceLibrary TargetType = "sourceLibrary"
	TargetNone          TargetType = "none"
)

// BuildSettings is a package's (or configuration's) contribution to a
// build: the additive fields union across dependencies; the
// non-propagating fields belong only to the owning recipe.
type BuildSettings struct {
	// Additive — unioned across a target's own recipe and every
	// upstream dependency; also the union a
	// configuration block contributes on top of its recipe's base.
	SourceFiles       []string          `cfg:"sourceFiles,additive"`
	ImportPaths       []string          `cfg:"importPaths,additive"`
	StringImportPaths []string          `cfg:"stringImportPaths,additive"`
	Versions          []string          `cfg:"versions,additive"`
	DebugVersions     []string          `cfg:"debugVersions,additive"`
	DFlags            []string          `cfg:"dflags,additive"`
	LFlags            []string          `cfg:"lflags,additive"`
	Libs              map[string]string `cfg:"libs,pattern,additive"`
	LinkFiles         []string          `cfg:"linkFiles,additive"`
	CopyFiles         []string          `cfg:"copyFiles,additive"`

	// Non-propagating — own-recipe only, but still a
	// configuration block can override them, so they're wrapped in
	// SetInfo to give Merge a defined "higher wins if set" rule.
	MainSourceFile configdoc.SetInfo[string]     `cfg:"mainSourceFile,optional"`
	TargetType     configdoc.SetInfo[TargetType] `cfg:"targetType,optional"`
	TargetName     configdoc.SetInfo[string]     `cfg:"targetName,optional"`

	PreGenerateCommands  []string          `cfg:"preGenerateCommands,additive"`
	PostGenerateCommands []string          `cfg:"postGenerateCommands,additive"`
	PreBuildCommands     []string          `cfg:"preBuildCommands,additive"`
	PostBuildCommands    []string          `cfg:"postBuildCommands,additive"`
	Environment          map[string]string `cfg:"environment,pattern,additive"`

	// PlatformBlocks holds settings hoisted from platform-suffixed
	// keys ("dflags-windows-x86"), keyed by the suffix. ForPlatform
	// folds in the blocks whose suffix matches the build platform and
	// drops the rest; until then the suffixed entries live here instead
	// of polluting the flat lists above.
	PlatformBlocks map[string]BuildSettings `cfg:"platformSettings,additive"`
}

// Configuration is a named alternative settings block with its own
// platform filter.
type Configuration struct {
	Name         string                           `cfg:"name"`
	PlatformSpec string                           `cfg:"platforms,optional"`
	Dependencies map[string]semver.DependencySpec `cfg:"dependencies,optional"`
	Settings     BuildSettings                    `cfg:",alias"`
}

// Matches reports whether this configuration's platform filter admits p.
func (c Configuration) Matches(p platform.Platform) bool {
	return p.Matches(c.PlatformSpec)
}

// Recipe is the declarative description of a package.
type Recipe struct {
	Name        string   `cfg:"name"`
	Version     string   `cfg:"version,optional"`
	Description string   `cfg:"description,optional"`
	License     string   `cfg:"license,optional"`
	Authors     []string `cfg:"authors,additive"`
	Copyright   string   `cfg:"copyright,optional"`

	Settings BuildSettings `cfg:",alias"`

	Dependencies map[string]semver.DependencySpec `cfg:"dependencies,optional"`

	Configurations []Configuration `cfg:"configurations,optional"`
	DefaultConfig  string          `cfg:"defaultConfiguration,optional"`

	Subpackages []SubpackageRef `cfg:"subpackages,optional"`

	// SourcePath is not part of the document; Load fills it in so
	// relative path dependencies can be resolved against the
	// directory the recipe came from.
	SourcePath string `cfg:"-"`
}

// SubpackageRef is either an inline recipe or a path to an externally
// loaded one.
type SubpackageRef struct {
	Path   string  `cfg:"path,optional"`
	Inline *Recipe `cfg:"-"`
}

// UnmarshalNode implements configdoc.NodeUnmarshaler. A mapping with a
// "path" key is an external reference, resolved later by Load; any
// other mapping is bound as a nested Recipe in place.
func (s *SubpackageRef) UnmarshalNode(n *docnode.Node) error {
	if p := n.Get("path"); p != nil && p.Kind == docnode.Scalar {
		s.Path = p.ScalarValue
		return nil
	}
	inline, err := configdoc.Parse[Recipe](n, configdoc.StrictWarn)
	if err != nil {
		return err
	}
	if len(inline.Subpackages) > 0 {
		return fmt.Errorf("subpackage %q may not itself declare subpackages", inline.Name)
	}
	s.Inline = inline
	return nil
}

// Validate implements configdoc.Validator, run automatically by
// configdoc.Parse right after binding. It reports only the first
// structural defect; ValidateStructural reports all of them, for
// callers (like a CLI validate command) that want the full list.
func (r *Recipe) Validate() error {
	if errs := ValidateStructural(r); len(errs) > 0 {
		return fmt.Errorf("recipe %q: %s", r.Name, errs[0].String())
	}
	return nil
}

// Identity returns the package's full identity string: "name" or
// "name:subname" for a subpackage.
func Identity(packageName, subName string) string {
	if subName == "" {
		return packageName
	}
	return packageName + ":" + subName
}
