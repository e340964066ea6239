package planner

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/platform"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/selections"
	"github.com/dub-go/dub/internal/semver"
)

// Input bundles everything Plan needs: the resolved graph (as a set of
// selected locators, mirroring resolver.Resolve's output shape without
// importing internal/resolver, so planner has no dependency on the
// resolution algorithm itself) plus the platform and per-package
// configuration choices the plan is computed for.
type Input struct {
	Root     *recipe.Recipe
	RootDir  string // absolute directory Root was loaded from
	Selected map[string]selections.Locator
	Packages *pkgmanager.Manager
	Platform platform.Platform

	// Configurations overrides the dependency-chosen default
	// configuration per package name.
	Configurations map[string]string

	// CompilerID identifies the compiler binary and version folded
	// into every target's build identity.
	CompilerID string
	// Policy selects hash-based or time-based identity computation.
	Policy HashPolicy
}

// Plan computes the topologically-ordered build target list for
// in.Root and its resolved dependencies.
func Plan(in Input) ([]Target, error) {
	p := &planner{
		in:       in,
		visited:  map[string]*Target{},
		visiting: map[string]bool{},
	}
	root, err := p.visit("", in.Root, in.RootDir)
	if err != nil {
		return nil, err
	}

	order := make([]Target, 0, len(p.order))
	for _, t := range p.order {
		order = append(order, *t)
	}
	_ = root
	return order, nil
}

type planner struct {
	in       Input
	visited  map[string]*Target // identity string -> target
	visiting map[string]bool    // cycle guard during the DFS
	order    []*Target          // post-order: dependencies before dependents
}

// visit computes (and memoizes) the Target for r, loaded from dir,
// recursing into r's dependencies first so the returned slice is
// already in dependency order.
func (p *planner) visit(name string, r *recipe.Recipe, dir string) (*Target, error) {
	identity := name
	if identity == "" {
		identity = r.Name
	}
	if t, ok := p.visited[identity]; ok {
		return t, nil
	}
	if p.visiting[identity] {
		return nil, fmt.Errorf("planner: circular target dependency at %q", identity)
	}
	p.visiting[identity] = true
	defer delete(p.visiting, identity)

	configName, err := p.chooseConfiguration(identity, r)
	if err != nil {
		return nil, err
	}
	settings, err := r.EffectiveSettings(p.in.Platform, configName)
	if err != nil {
		return nil, err
	}

	deps := r.DependenciesFor(p.in.Platform, configName)
	depNames := make([]string, 0, len(deps))
	for depName := range deps {
		depNames = append(depNames, depName)
	}
	sort.Strings(depNames)

	var linkInputs []string
	var upstreamIdentities []string
	merged := settings

	for _, depName := range depNames {
		depTarget, depSettings, err := p.resolveDependency(depName, deps[depName], dir)
		if err != nil {
			return nil, err
		}
		if depTarget == nil {
			continue // optional dependency with no selection; nothing to contribute
		}

		switch depTarget.TargetType {
		case recipe.TargetSourceLibrary:
			// The library's sources are relative to its own directory;
			// rebase them onto this target's SourceDir.
			rebased := make([]string, len(depSettings.SourceFiles))
			for i, s := range depSettings.SourceFiles {
				rel, err := filepath.Rel(dir, filepath.Join(depTarget.SourceDir, s))
				if err != nil {
					return nil, err
				}
				rebased[i] = rel
			}
			depSettings.SourceFiles = rebased
			merged, err = mergeDependencySettings(merged, depSettings)
			if err != nil {
				return nil, err
			}
		case recipe.TargetStaticLibrary, recipe.TargetDynamicLib:
			// The compiled artifact stands in for the sources; every
			// other setting still flows to the dependent.
			depSettings.SourceFiles = nil
			merged, err = mergeDependencySettings(merged, depSettings)
			if err != nil {
				return nil, err
			}
			linkInputs = append(linkInputs, depTarget.LinkInputs...)
			linkInputs = append(linkInputs, depTarget.Identity)
		case recipe.TargetNone:
			// contributes nothing
		}
		upstreamIdentities = append(upstreamIdentities, depTarget.UpstreamIdentities...)
		upstreamIdentities = append(upstreamIdentities, depTarget.Identity)
	}

	merged.Libs = admittedLibs(merged.Libs, p.in.Platform)

	targetType := merged.TargetType.Get(recipe.TargetSourceLibrary)

	t := &Target{
		Name:               r.Name,
		SubName:            subNameOf(identity, r.Name),
		TargetType:         targetType,
		SourceDir:          dir,
		Settings:           merged,
		LinkInputs:         linkInputs,
		UpstreamIdentities: dedupSorted(upstreamIdentities),
	}
	id, err := ComputeIdentity(t, p.in.CompilerID, p.in.Policy, p.in.Platform)
	if err != nil {
		return nil, fmt.Errorf("planner: computing build identity for %q: %w", identity, err)
	}
	t.Identity = id

	p.visited[identity] = t
	p.order = append(p.order, t)
	return t, nil
}

// mergeDependencySettings folds a dependency's contribution into acc.
// configdoc.Merge's higher-first ordering is right for the path-like
// settings (a dependency's import paths take search priority over the
// dependent's), but backwards for link inputs, which must follow the
// dependent's own so the linker resolves them last: LFlags, LinkFiles,
// and Libs are pulled aside and appended after the merge instead. The
// non-propagating settings (main source file, target type, target
// name) never flow from a dependency at all.
func mergeDependencySettings(acc, dep recipe.BuildSettings) (recipe.BuildSettings, error) {
	lflags, linkFiles, libs := dep.LFlags, dep.LinkFiles, dep.Libs
	dep.LFlags, dep.LinkFiles, dep.Libs = nil, nil, nil

	out, err := configdoc.Merge(acc, dep)
	if err != nil {
		return recipe.BuildSettings{}, err
	}
	out.LFlags = append(out.LFlags, lflags...)
	out.LinkFiles = append(out.LinkFiles, linkFiles...)
	if len(libs) > 0 {
		combined := make(map[string]string, len(out.Libs)+len(libs))
		for suffix, lib := range libs {
			combined[suffix] = lib
		}
		for suffix, lib := range out.Libs {
			combined[suffix] = lib // the dependent's own entry wins a suffix clash
		}
		out.Libs = combined
	}
	out.MainSourceFile = acc.MainSourceFile
	out.TargetType = acc.TargetType
	out.TargetName = acc.TargetName
	return out, nil
}

// admittedLibs keeps the libs entries whose pattern suffix is a
// platform spec admitted by p; the empty suffix always applies. Run
// once per target, after the dependency merge, so both the build
// identity and the compiler command line see the same filtered view.
func admittedLibs(libs map[string]string, p platform.Platform) map[string]string {
	if len(libs) == 0 {
		return nil
	}
	out := make(map[string]string, len(libs))
	for suffix, lib := range libs {
		if p.Matches(suffix) {
			out[suffix] = lib
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func subNameOf(identity, name string) string {
	if identity == name {
		return ""
	}
	prefix := name + ":"
	if len(identity) > len(prefix) && identity[:len(prefix)] == prefix {
		return identity[len(prefix):]
	}
	return ""
}

// resolveDependency loads depName's recipe (and the target it
// computes to) from wherever its selected locator points: a path
// relative to the root recipe's directory (in.RootDir, as the resolver
// records path selections), or the package
// manager's cache for a version/repository locator.
func (p *planner) resolveDependency(depName string, dep semver.DependencySpec, contributorDir string) (*Target, recipe.BuildSettings, error) {
	loc, ok := p.in.Selected[depName]
	if !ok {
		if dep.Optional {
			return nil, recipe.BuildSettings{}, nil
		}
		return nil, recipe.BuildSettings{}, fmt.Errorf("planner: %q has no resolved selection", depName)
	}

	pkgName, subName := splitIdentity(depName)

	switch loc.Kind {
	case selections.LocatorPath:
		absDir := filepath.Clean(filepath.Join(p.in.RootDir, loc.Path.Native()))
		r, err := recipe.Load(absDir)
		if err != nil {
			return nil, recipe.BuildSettings{}, fmt.Errorf("planner: loading path dependency %q: %w", depName, err)
		}
		t, err := p.visit(depName, r, absDir)
		if err != nil {
			return nil, recipe.BuildSettings{}, err
		}
		return t, t.Settings, nil

	case selections.LocatorVersion:
		if p.in.Packages == nil {
			return nil, recipe.BuildSettings{}, fmt.Errorf("planner: %q is a version selection but no package manager was configured", depName)
		}
		pkg, err := p.in.Packages.GetPackage(pkgName, loc.Version)
		if err != nil {
			return nil, recipe.BuildSettings{}, fmt.Errorf("planner: loading %q: %w", depName, err)
		}
		if pkg == nil {
			return nil, recipe.BuildSettings{}, fmt.Errorf("planner: %q is not in the package cache", depName)
		}
		r := pkg.Recipe
		if subName != "" {
			sub, err := pkg.Recipe.Subpackage(subName)
			if err != nil {
				return nil, recipe.BuildSettings{}, err
			}
			r = sub
		}
		t, err := p.visit(depName, r, pkg.Dir)
		if err != nil {
			return nil, recipe.BuildSettings{}, err
		}
		return t, t.Settings, nil

	case selections.LocatorRepository:
		// A repository locator names a leaf dependency the resolver
		// does not recurse into (see DESIGN.md); the planner has
		// nothing further to merge for it beyond the link input the
		// consuming recipe is expected to declare explicitly.
		return nil, recipe.BuildSettings{}, nil

	default:
		return nil, recipe.BuildSettings{}, fmt.Errorf("planner: %q has an unrecognized locator kind", depName)
	}
}

func splitIdentity(identity string) (name, sub string) {
	for i := 0; i < len(identity); i++ {
		if identity[i] == ':' {
			return identity[:i], identity[i+1:]
		}
	}
	return identity, ""
}

// chooseConfiguration decides which configuration builds: "for each dependency, the
// resolver chooses a default configuration; the user may override
// per-package"; NoMatchingConfiguration is returned if the recipe
// declares configurations but none admit the current platform.
func (p *planner) chooseConfiguration(identity string, r *recipe.Recipe) (string, error) {
	if override, ok := p.in.Configurations[identity]; ok {
		return override, nil
	}
	if len(r.Configurations) == 0 {
		return "", nil
	}
	name := r.DefaultConfiguration(p.in.Platform)
	if name == "" {
		return "", &errNoMatchingConfiguration{Name: identity}
	}
	return name, nil
}

func dedupSorted(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
