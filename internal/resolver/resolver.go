// Package resolver implements dependency resolution: given a root
// recipe and a supplier chain, produce a set of concrete selected
// versions (or path/repository locators) that satisfy every transitive
// constraint. The algorithm is a single-pass greedy work queue with
// conflict detection, not a SAT-style backtracking solver; conflicts
// fail loudly with every contributing constraint named, and are never
// retried.
package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dub-go/dub/internal/dubpath"
	"github.com/dub-go/dub/internal/log"
	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/platform"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/selections"
	"github.com/dub-go/dub/internal/semver"
	"github.com/dub-go/dub/internal/supplier"
)

// Policy is the resolve-time policy set.
type Policy struct {
	// SelectMissing resolves only names absent from Existing, reusing
	// every other name's recorded selection verbatim (`upgrade
	// --missing-only`).
	SelectMissing bool
	// UpgradeAll discards Existing entirely and re-selects every name
	// from scratch (`upgrade --select` with no existing file, or a
	// fresh resolve).
	UpgradeAll bool
	// PreReleases allows a prerelease version to win selection even
	// when stable candidates exist.
	PreReleases bool
}

// Selection is one resolved name's outcome: the locator recorded into
// dub.selections.json, plus (for a version locator) which supplier to
// fetch it from.
type Selection struct {
	Locator  selections.Locator
	Supplier supplier.Supplier // nil for path and repository locators
}

// Input bundles everything Resolve needs.
type Input struct {
	Root      *recipe.Recipe
	Policy    Policy
	Existing  map[string]selections.Locator // nil if no selections file
	Suppliers []supplier.Supplier           // tried in order; earlier wins ties
	Overrides map[string]semver.Version     // pkgmanager version overrides, consulted first
	Packages  *pkgmanager.Manager           // fetches a version-selected package's recipe to continue the walk
	GitHub    *GitHubResolver               // optional; nil disables repository ref auto-discovery
	Logger    log.Logger                    // if nil, uses log.Default()

	// Platform filters configuration-specific dependencies: a recipe's
	// default configuration for this platform contributes its own
	// dependency map on top of the global one. The zero value admits
	// only configurations with no platform filter.
	Platform platform.Platform
}

// workItem is one (name, constraint) pair pulled off the queue.
type workItem struct {
	name            string
	dep             semver.DependencySpec
	contributorName string   // human-readable source, e.g. "root" or "fmt"
	contributorDir  string   // absolute directory of the contributing recipe
	pathChain       []string // absolute directories reached via path edges so far
}

type resolveState struct {
	selected     map[string]Selection
	originDep    map[string]semver.DependencySpec // the DependencySpec that won selection, for pin-compatibility checks
	contributors map[string][]string              // name -> ["A depends on X ~>1.0", ...], for conflict messages
	rootDir      string
	platform     platform.Platform
	logger       log.Logger
}

// Resolve resolves in.Root's transitive dependency graph to concrete
// selections.
func Resolve(ctx context.Context, in Input) (map[string]Selection, error) {
	logger := in.Logger
	if logger == nil {
		logger = log.Default()
	}
	st := &resolveState{
		selected:     make(map[string]Selection),
		originDep:    make(map[string]semver.DependencySpec),
		contributors: make(map[string][]string),
		rootDir:      in.Root.SourcePath,
		platform:     in.Platform,
		logger:       logger.With("root", in.Root.Name),
	}

	if !in.Policy.UpgradeAll {
		for name, loc := range in.Existing {
			st.selected[name] = Selection{Locator: loc}
		}
	}
	for name, v := range in.Overrides {
		st.selected[name] = Selection{Locator: selections.Locator{Kind: selections.LocatorVersion, Version: v}}
	}

	queue := st.seedQueue(in.Root, "root", in.Root.SourcePath, []string{in.Root.SourcePath})
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		more, err := st.process(ctx, in, item)
		if err != nil {
			return nil, err
		}
		queue = append(queue, more...)
	}

	return st.selected, nil
}

// seedQueue builds the sorted work items for r's direct dependencies:
// the global map plus whatever the default configuration for the
// resolve platform contributes.
func (st *resolveState) seedQueue(r *recipe.Recipe, contributorName, contributorDir string, pathChain []string) []workItem {
	deps := r.DependenciesFor(st.platform, r.DefaultConfiguration(st.platform))
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]workItem, 0, len(names))
	for _, name := range names {
		items = append(items, workItem{
			name:            name,
			dep:             deps[name],
			contributorName: contributorName,
			contributorDir:  contributorDir,
			pathChain:       pathChain,
		})
	}
	return items
}

func (st *resolveState) process(ctx context.Context, in Input, item workItem) ([]workItem, error) {
	switch item.dep.Kind {
	case semver.LocatorPath:
		return st.processPath(item)
	case semver.LocatorRepository:
		return st.processRepository(ctx, in, item)
	default: // LocatorRange, LocatorAny
		return st.processVersion(ctx, in, item)
	}
}

func (st *resolveState) processPath(item workItem) ([]workItem, error) {
	absPath := filepath.Clean(filepath.Join(item.contributorDir, item.dep.Path))

	for _, seen := range item.pathChain {
		if seen == absPath {
			return nil, &CycleError{Path: append(append([]string{}, item.pathChain...), absPath)}
		}
	}

	st.contributors[item.name] = append(st.contributors[item.name],
		fmt.Sprintf("%s depends on %s (path %s)", item.contributorName, item.name, item.dep.Path))

	if existing, ok := st.selected[item.name]; ok {
		if existing.Locator.Kind == selections.LocatorPath {
			return nil, nil // same kind; trust the earlier resolution of the same name
		}
		return nil, &DependencyConflict{Name: item.name, Contributors: st.contributors[item.name]}
	}

	r, err := recipe.Load(absPath)
	if err != nil {
		return nil, fmt.Errorf("resolver: loading path dependency %q at %s: %w", item.name, absPath, err)
	}

	relToRoot, err := filepath.Rel(st.rootDir, absPath)
	if err != nil {
		relToRoot = absPath
	}
	st.selected[item.name] = Selection{Locator: selections.Locator{
		Kind: selections.LocatorPath,
		Path: dubpath.New(relToRoot),
	}}
	st.originDep[item.name] = item.dep

	chain := append(append([]string{}, item.pathChain...), absPath)
	return st.seedQueue(r, item.name, absPath, chain), nil
}

func (st *resolveState) processVersion(ctx context.Context, in Input, item workItem) ([]workItem, error) {
	desc := fmt.Sprintf("%s depends on %s %s", item.contributorName, item.name, constraintLabel(item.dep))
	st.contributors[item.name] = append(st.contributors[item.name], desc)

	if existing, ok := st.selected[item.name]; ok {
		st.logger.Debug("reusing already-selected locator", "package", item.name, "kind", existing.Locator.Kind)
		if _, pinned := in.Overrides[item.name]; pinned {
			return nil, nil // a version override stands in for every constraint on the name
		}
		return nil, st.checkCompatibility(item, existing)
	}

	candidates, err := describeAcrossSuppliers(ctx, in.Suppliers, item.name)
	if err != nil {
		return nil, err
	}

	version, supplierOfVersion, ok := pickVersion(item.dep, candidates, in.Policy.PreReleases)
	if !ok {
		st.logger.Warn("no candidate version satisfies constraint", "package", item.name, "constraint", constraintLabel(item.dep))
		return nil, &NoSupplierMatch{Name: item.name, Contributors: st.contributors[item.name]}
	}
	st.logger.Debug("selected version", "package", item.name, "version", version.String(), "supplier", supplierOfVersion)

	st.selected[item.name] = Selection{
		Locator:  selections.Locator{Kind: selections.LocatorVersion, Version: version},
		Supplier: supplierOfVersion,
	}
	st.originDep[item.name] = item.dep

	if in.Packages == nil {
		return nil, nil
	}
	pkg, err := in.Packages.Fetch(ctx, supplierOfVersion, item.name, version)
	if err != nil {
		return nil, fmt.Errorf("resolver: fetching %s@%s to discover its dependencies: %w", item.name, version, err)
	}
	return st.seedQueue(pkg.Recipe, item.name, pkg.Dir, item.pathChain), nil
}

// processRepository resolves a `repository:` locator: the
// explicit ref, if given, always wins; otherwise GitHubResolver (when
// configured) discovers the latest tag. A repository locator's own
// transitive dependencies are not walked further — discovering them
// would require fetching the repository during resolution itself,
// which the supplier/pkgmanager layer only does for version-selected
// packages (see DESIGN.md).
func (st *resolveState) processRepository(ctx context.Context, in Input, item workItem) ([]workItem, error) {
	st.contributors[item.name] = append(st.contributors[item.name],
		fmt.Sprintf("%s depends on %s (repository %s)", item.contributorName, item.name, item.dep.RepositoryURL))

	if existing, ok := st.selected[item.name]; ok {
		if existing.Locator.Kind == selections.LocatorRepository && existing.Locator.RepositoryURL == item.dep.RepositoryURL {
			return nil, nil
		}
		return nil, &DependencyConflict{Name: item.name, Contributors: st.contributors[item.name]}
	}

	ref := item.dep.Ref
	if ref == "" {
		if in.GitHub == nil {
			return nil, fmt.Errorf("resolver: %q has no explicit ref and no GitHub resolver is configured", item.name)
		}
		owner, repo, ok := ownerRepo(item.dep.RepositoryURL)
		if !ok {
			return nil, fmt.Errorf("resolver: %q's repository URL %q is not a recognized GitHub locator", item.name, item.dep.RepositoryURL)
		}
		tag, err := in.GitHub.LatestTag(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
		ref = tag
	}

	st.selected[item.name] = Selection{Locator: selections.Locator{
		Kind:          selections.LocatorRepository,
		RepositoryURL: item.dep.RepositoryURL,
		Ref:           ref,
	}}
	st.originDep[item.name] = item.dep
	return nil, nil
}

// checkCompatibility checks an already-recorded selection against the
// dependency constraint currently in hand; a mismatch is a conflict.
func (st *resolveState) checkCompatibility(item workItem, existing Selection) error {
	switch existing.Locator.Kind {
	case selections.LocatorVersion:
		if item.dep.Kind == semver.LocatorAny || item.dep.Range.Matches(existing.Locator.Version) {
			return nil
		}
		return &DependencyConflict{Name: item.name, Contributors: st.contributors[item.name]}
	case selections.LocatorPath, selections.LocatorRepository:
		origin, ok := st.originDep[item.name]
		if !ok || !origin.HasPin {
			return nil // no pin recorded to check against; the locator supersedes
		}
		if item.dep.Kind == semver.LocatorAny || item.dep.Range.Matches(origin.Pin) {
			return nil
		}
		return &DependencyConflict{Name: item.name, Contributors: st.contributors[item.name]}
	default:
		return nil
	}
}

func constraintLabel(dep semver.DependencySpec) string {
	if dep.Kind == semver.LocatorAny {
		return "*"
	}
	return dep.Range.String()
}
