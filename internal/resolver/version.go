package resolver

import (
	"context"
	"fmt"

	"github.com/dub-go/dub/internal/semver"
	"github.com/dub-go/dub/internal/supplier"
)

// versionCandidate pairs a discovered version with the supplier that
// advertised it, so the winner can be fetched from the right place.
type versionCandidate struct {
	Version  semver.Version
	Supplier supplier.Supplier
}

// describeAcrossSuppliers queries every supplier for name, in order,
// keeping the first supplier to advertise a given version.
func describeAcrossSuppliers(ctx context.Context, suppliers []supplier.Supplier, name string) ([]versionCandidate, error) {
	seen := map[string]bool{}
	var candidates []versionCandidate
	var lastErr error

	for _, s := range suppliers {
		versions, err := s.Describe(ctx, name)
		if err != nil {
			if suppErr, ok := err.(*supplier.Error); ok && suppErr.Kind == supplier.ErrNotFound {
				continue
			}
			lastErr = err
			continue
		}
		for _, v := range versions {
			key := v.Version.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, versionCandidate{Version: v.Version, Supplier: s})
		}
	}

	if len(candidates) == 0 && lastErr != nil {
		return nil, fmt.Errorf("resolver: describing %q: %w", name, lastErr)
	}
	return candidates, nil
}

// pickVersion applies the best-version rule for whichever
// locator kind item.dep carries: a range constraint picks the best
// match within it; an "any" constraint picks the best version overall.
func pickVersion(dep semver.DependencySpec, candidates []versionCandidate, allowPrerelease bool) (semver.Version, supplier.Supplier, bool) {
	if dep.Kind == semver.LocatorAny {
		return pickBestAny(candidates, allowPrerelease)
	}

	versions := make([]semver.Version, len(candidates))
	for i, c := range candidates {
		versions[i] = c.Version
	}
	best, ok := dep.Range.Best(versions, allowPrerelease)
	if !ok {
		return semver.Version{}, nil, false
	}
	return best, supplierFor(candidates, best), true
}

// pickBestAny mirrors Range.Best's prerelease-eligibility rule without
// requiring a range to match against.
func pickBestAny(candidates []versionCandidate, allowPrerelease bool) (semver.Version, supplier.Supplier, bool) {
	if len(candidates) == 0 {
		return semver.Version{}, nil, false
	}

	var stable []versionCandidate
	for _, c := range candidates {
		if !c.Version.IsPrerelease() {
			stable = append(stable, c)
		}
	}
	pool := candidates
	if !allowPrerelease && len(stable) > 0 {
		pool = stable
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if c.Version.Compare(best.Version) > 0 {
			best = c
		}
	}
	return best.Version, best.Supplier, true
}

func supplierFor(candidates []versionCandidate, v semver.Version) supplier.Supplier {
	for _, c := range candidates {
		if c.Version.String() == v.String() {
			return c.Supplier
		}
	}
	return nil
}
