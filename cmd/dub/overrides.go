package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/pkgmanager"
)

var addLocalCmd = &cobra.Command{
	Use:   "add-local <path> <version>",
	Short: "Register a directory as the package served for name@version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, version := args[0], args[1]
		root, err := loadRootRecipe()
		if err != nil {
			return err
		}
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.AddLocal(root.Name, version, dir); err != nil {
			return err
		}
		printInfof("Registered %s@%s -> %s\n", root.Name, version, dir)
		return nil
	},
}

var removeLocalCmd = &cobra.Command{
	Use:   "remove-local <path> [version]",
	Short: "Unregister a previously add-local'd directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadRootRecipe()
		if err != nil {
			return err
		}
		version := root.Version
		if len(args) == 2 {
			version = args[1]
		}
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.RemoveLocal(root.Name, version); err != nil {
			return err
		}
		printInfof("Removed local override for %s@%s\n", root.Name, version)
		return nil
	},
}

var addPathCmd = &cobra.Command{
	Use:   "add-path <path>",
	Short: "Register a directory to search for packages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.AddPath(args[0]); err != nil {
			return err
		}
		printInfof("Added search path %s\n", args[0])
		return nil
	},
}

var removePathCmd = &cobra.Command{
	Use:   "remove-path <path>",
	Short: "Unregister a package search path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.RemovePath(args[0]); err != nil {
			return err
		}
		printInfof("Removed search path %s\n", args[0])
		return nil
	},
}

var addOverrideCmd = &cobra.Command{
	Use:   "add-override <name> <version>",
	Short: "Pin a dependency to a version ahead of resolution",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.AddOverride(args[0], args[1]); err != nil {
			return err
		}
		printInfof("Overrode %s to %s\n", args[0], args[1])
		return nil
	},
}

var removeOverrideCmd = &cobra.Command{
	Use:   "remove-override <name>",
	Short: "Drop a version override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.RemoveOverride(args[0]); err != nil {
			return err
		}
		printInfof("Removed override for %s\n", args[0])
		return nil
	},
}

var listOverridesCmd = &cobra.Command{
	Use:   "list-overrides",
	Short: "List every registered local, path, and version override",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		locals, err := mgr.ListLocal()
		if err != nil {
			return err
		}
		for _, l := range locals {
			fmt.Printf("local  %s@%s -> %s\n", l.Name, l.Version, l.Dir)
		}
		paths, err := mgr.ListPaths()
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Printf("path   %s\n", p)
		}
		overrides, err := mgr.ListOverrides()
		if err != nil {
			return err
		}
		for _, o := range overrides {
			fmt.Printf("select %s -> %s\n", o.Name, o.Version)
		}
		return nil
	},
}

func newManager() (*pkgmanager.Manager, error) {
	cfg, err := dubConfig()
	if err != nil {
		return nil, err
	}
	return pkgmanager.New(cfg), nil
}
