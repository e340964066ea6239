package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/semver"
	"github.com/dub-go/dub/internal/supplier"
)

var initTypeFlag string

var initCmd = &cobra.Command{
	Use:   "init <name> [dependency...]",
	Short: "Scaffold a new package recipe",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		deps := args[1:]
		if initTypeFlag == "vibe.d" {
			deps = append(deps, "vibe-d") // the vibe.d template depends on the vibe-d package
		}

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		suppliers := buildSuppliers(settings)

		dependencies, err := verifyDependenciesExist(cmd, suppliers, deps)
		if err != nil {
			return err // nothing written yet; no partial recipe is left behind
		}

		r := &recipe.Recipe{
			Name:         name,
			Version:      "0.0.1",
			Description:  fmt.Sprintf("%s package", name),
			License:      "proprietary",
			Dependencies: dependencies,
			Settings:     recipeSettingsForType(initTypeFlag),
		}

		dir, err := filepath.Abs(rootFlag)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, "recipe.json")
		if err := recipe.Write(r, target); err != nil {
			return err
		}
		printInfof("Created %s\n", target)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initTypeFlag, "type", "minimal", "Project template: minimal|executable|library|vibe.d")
}

// verifyDependenciesExist checks every named dependency against the
// configured suppliers before anything is written to disk, so `dub
// init` on an unknown package name fails clean with no files created.
func verifyDependenciesExist(cmd *cobra.Command, suppliers []supplier.Supplier, names []string) (map[string]semver.DependencySpec, error) {
	out := map[string]semver.DependencySpec{}
	for _, name := range names {
		found := false
		for _, s := range suppliers {
			versions, err := s.Describe(cmd.Context(), name)
			if err == nil && len(versions) > 0 {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("init: unknown package %q; no configured supplier lists it", name)
		}
		out[name] = semver.DependencySpec{Kind: semver.LocatorAny}
	}
	return out, nil
}

// recipeSettingsForType returns the starter BuildSettings for a
// template name; "vibe.d" (whose vibe-d dependency the command adds)
// and unrecognized names fall back to the same minimal
// settings "minimal" gets, since init should never fail merely because
// --type named something this dub build doesn't ship a template for.
func recipeSettingsForType(typ string) recipe.BuildSettings {
	switch typ {
	case "executable":
		return recipe.BuildSettings{
			SourceFiles:    []string{"source/app.d"},
			MainSourceFile: configdoc.Set("source/app.d"),
			TargetType:     configdoc.Set(recipe.TargetExecutable),
		}
	case "library":
		return recipe.BuildSettings{
			SourceFiles: []string{"source/" + "package.d"},
			ImportPaths: []string{"source"},
			TargetType:  configdoc.Set(recipe.TargetSourceLibrary),
		}
	default:
		return recipe.BuildSettings{
			SourceFiles:    []string{"source/app.d"},
			ImportPaths:    []string{"source"},
			MainSourceFile: configdoc.Set("source/app.d"),
			TargetType:     configdoc.Set(recipe.TargetExecutable),
		}
	}
}
