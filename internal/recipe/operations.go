package recipe

import (
	"fmt"
	"sort"

	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/platform"
	"github.com/dub-go/dub/internal/semver"
)

// Subpackage returns the named subpackage's Recipe. Subpackage lookup
// is one level deep only: a subpackage may not itself carry
// subpackages, a constraint already enforced at Load time.
func (r *Recipe) Subpackage(name string) (*Recipe, error) {
	for _, ref := range r.Subpackages {
		if ref.Inline != nil && ref.Inline.Name == name {
			return ref.Inline, nil
		}
	}
	return nil, fmt.Errorf("recipe %q: no subpackage named %q", r.Name, name)
}

// AdmittedConfigurations lists the configuration names whose platform
// filter admits p, in declaration order.
func (r *Recipe) AdmittedConfigurations(p platform.Platform) []string {
	var names []string
	for _, cfg := range r.Configurations {
		if cfg.Matches(p) {
			names = append(names, cfg.Name)
		}
	}
	return names
}

// DefaultConfiguration returns the recipe's default configuration name
// for platform p: the recipe's declared defaultConfiguration if it's
// admitted by p, otherwise the first configuration admitted by p, or
// empty if none apply.
func (r *Recipe) DefaultConfiguration(p platform.Platform) string {
	admitted := r.AdmittedConfigurations(p)
	if len(admitted) == 0 {
		return ""
	}
	if r.DefaultConfig != "" {
		for _, name := range admitted {
			if name == r.DefaultConfig {
				return name
			}
		}
	}
	return admitted[0]
}

// EffectiveSettings computes the settings a target sees when built for
// platform p in the named configuration (empty selects the recipe's
// base settings only). The configuration's own additive fields are
// merged over the recipe's base settings via configdoc.Merge, with the
// configuration's values taking precedence as the "higher" layer.
func (r *Recipe) EffectiveSettings(p platform.Platform, configName string) (BuildSettings, error) {
	if configName == "" {
		return r.Settings.ForPlatform(p)
	}
	for _, cfg := range r.Configurations {
		if cfg.Name != configName {
			continue
		}
		if !cfg.Matches(p) {
			return BuildSettings{}, fmt.Errorf("recipe %q: configuration %q does not apply to platform", r.Name, configName)
		}
		merged, err := configdoc.Merge(r.Settings, cfg.Settings)
		if err != nil {
			return BuildSettings{}, err
		}
		return merged.ForPlatform(p)
	}
	return BuildSettings{}, fmt.Errorf("recipe %q: no configuration named %q", r.Name, configName)
}

// ForPlatform resolves s's platform-suffixed blocks against p: blocks
// whose suffix matches p are merged in (their entries landing ahead of
// the base entries, like a configuration's), non-matching blocks are
// dropped. The returned settings carry no blocks of their own. Suffixes
// are visited in sorted order so the result is deterministic no matter
// what order the document declared them in.
func (s BuildSettings) ForPlatform(p platform.Platform) (BuildSettings, error) {
	out := s
	out.PlatformBlocks = nil
	if len(s.PlatformBlocks) == 0 {
		return out, nil
	}
	specs := make([]string, 0, len(s.PlatformBlocks))
	for spec := range s.PlatformBlocks {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	for _, spec := range specs {
		if !p.Matches(spec) {
			continue
		}
		block := s.PlatformBlocks[spec]
		block.PlatformBlocks = nil
		merged, err := configdoc.Merge(out, block)
		if err != nil {
			return BuildSettings{}, err
		}
		out = merged
	}
	return out, nil
}

// DependenciesFor returns the dependency map a build in the named
// configuration sees on platform p: the recipe's global dependencies
// plus the configuration's own, the latter winning on a shared name.
// An empty configName contributes global dependencies only.
func (r *Recipe) DependenciesFor(p platform.Platform, configName string) map[string]semver.DependencySpec {
	out := make(map[string]semver.DependencySpec, len(r.Dependencies))
	for name, spec := range r.Dependencies {
		out[name] = spec
	}
	if configName == "" {
		return out
	}
	for _, cfg := range r.Configurations {
		if cfg.Name != configName || !cfg.Matches(p) {
			continue
		}
		for name, spec := range cfg.Dependencies {
			out[name] = spec
		}
	}
	return out
}
