package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/semver"
	"github.com/dub-go/dub/internal/supplier"
)

var fetchRecursiveFlag bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <name>[@<version>]",
	Short: "Force-fetch a package (and optionally its dependencies) into the package cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, versionStr := splitNameVersion(args[0])

		cfg, err := dubConfig()
		if err != nil {
			return err
		}
		mgr := pkgmanager.New(cfg)

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		suppliers := buildSuppliers(settings)
		if len(suppliers) == 0 {
			return fmt.Errorf("no suppliers configured; pass --registry or check the settings file")
		}

		version, s, err := resolveFetchVersion(cmd, suppliers, name, versionStr)
		if err != nil {
			return err
		}

		visited := map[string]bool{}
		return fetchOne(cmd, mgr, suppliers, s, name, version, visited)
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchRecursiveFlag, "recursive", false, "Also fetch every transitive dependency")
}

// resolveFetchVersion picks a concrete version to fetch: versionStr if
// given (parsed and trusted), otherwise the best version any
// configured supplier reports for name.
func resolveFetchVersion(cmd *cobra.Command, suppliers []supplier.Supplier, name, versionStr string) (semver.Version, supplier.Supplier, error) {
	if versionStr != "" {
		v, err := semver.ParseVersion(versionStr)
		if err != nil {
			return semver.Version{}, nil, fmt.Errorf("invalid version %q: %w", versionStr, err)
		}
		for _, s := range suppliers {
			versions, err := s.Describe(cmd.Context(), name)
			if err != nil {
				continue
			}
			for _, info := range versions {
				if info.Version.Equal(v) {
					return v, s, nil
				}
			}
		}
		return semver.Version{}, nil, fmt.Errorf("no supplier has %s@%s", name, versionStr)
	}

	var best semver.Version
	var bestSupplier supplier.Supplier
	haveBest := false
	for _, s := range suppliers {
		versions, err := s.Describe(cmd.Context(), name)
		if err != nil {
			continue
		}
		for _, info := range versions {
			if !haveBest || info.Version.Compare(best) > 0 {
				best = info.Version
				bestSupplier = s
				haveBest = true
			}
		}
	}
	if !haveBest {
		return semver.Version{}, nil, fmt.Errorf("package %q not found on any configured supplier", name)
	}
	return best, bestSupplier, nil
}

// fetchOne fetches name@version via s, then — when --recursive was
// given — walks its recipe's dependency map fetching each named
// dependency's best matching version the same way.
func fetchOne(cmd *cobra.Command, mgr *pkgmanager.Manager, suppliers []supplier.Supplier, s supplier.Supplier, name string, version semver.Version, visited map[string]bool) error {
	key := name + "@" + version.String()
	if visited[key] {
		return nil
	}
	visited[key] = true

	pkg, err := mgr.Fetch(cmd.Context(), s, name, version)
	if err != nil {
		return err
	}
	printInfof("Fetched %s %s\n", name, version.String())

	if !fetchRecursiveFlag || pkg.Recipe == nil {
		return nil
	}
	for depName, spec := range pkg.Recipe.Dependencies {
		if spec.Kind != semver.LocatorRange { // only plain version-range dependencies are auto-fetched recursively
			continue
		}
		var depVersion semver.Version
		var depSupplier supplier.Supplier
		for _, ds := range suppliers {
			infos, err := ds.Describe(cmd.Context(), depName)
			if err != nil {
				continue
			}
			candidates := make([]semver.Version, len(infos))
			for i, info := range infos {
				candidates[i] = info.Version
			}
			if v, ok := spec.Range.Best(candidates, false); ok && (depSupplier == nil || v.Compare(depVersion) > 0) {
				depVersion, depSupplier = v, ds
			}
		}
		if depSupplier == nil {
			return fmt.Errorf("no supplier has a version of %q matching %s", depName, spec.Range)
		}
		if err := fetchOne(cmd, mgr, suppliers, depSupplier, depName, depVersion, visited); err != nil {
			return err
		}
	}
	return nil
}

func splitNameVersion(spec string) (name, version string) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == '@' {
			return spec[:i], spec[i+1:]
		}
	}
	return spec, ""
}
