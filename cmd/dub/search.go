package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/semver"
)

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Query the configured suppliers for a package's known versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		suppliers := buildSuppliers(settings)
		if len(suppliers) == 0 {
			return fmt.Errorf("no suppliers configured; pass --registry or check the settings file")
		}

		type hit struct {
			supplier string
			version  semver.Version
		}
		var hits []hit
		for _, s := range suppliers {
			versions, err := s.Describe(cmd.Context(), name)
			if err != nil {
				continue // a supplier with no match for this name is not fatal to the search
			}
			for _, v := range versions {
				hits = append(hits, hit{supplier: s.String(), version: v.Version})
			}
		}
		if len(hits) == 0 {
			printInfof("No packages found matching %q\n", name)
			return nil
		}

		sort.SliceStable(hits, func(i, j int) bool { return hits[i].version.Compare(hits[j].version) < 0 })
		for _, h := range hits {
			printInfof("%s %s (%s)\n", name, h.version.String(), h.supplier)
		}
		return nil
	},
}
