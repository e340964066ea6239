package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/vfs"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every package available in the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := dubConfig()
		if err != nil {
			return err
		}
		fsys := vfs.OS{}

		if !fsys.Exists(cfg.PackagesDir) {
			printInfo("No packages fetched yet.")
			return nil
		}

		nameEntries, err := vfs.SortedDirEntries(fsys, cfg.PackagesDir)
		if err != nil {
			return fmt.Errorf("list: reading %s: %w", cfg.PackagesDir, err)
		}

		for _, nameEntry := range nameEntries {
			if !nameEntry.IsDir() {
				continue
			}
			pkgDir := filepath.Join(cfg.PackagesDir, nameEntry.Name())
			versionEntries, err := vfs.SortedDirEntries(fsys, pkgDir)
			if err != nil {
				continue
			}
			for _, v := range versionEntries {
				if !v.IsDir() {
					continue
				}
				recipeDir := filepath.Join(pkgDir, v.Name(), nameEntry.Name())
				if r, err := recipe.Load(recipeDir); err == nil {
					printInfof("%s %s\n", r.Name, r.Version)
				} else {
					printInfof("%s %s\n", nameEntry.Name(), v.Name())
				}
			}
		}

		mgr := pkgmanager.New(cfg)
		locals, err := mgr.ListLocal()
		if err == nil {
			for _, l := range locals {
				printInfof("%s %s (local override: %s)\n", l.Name, l.Version, l.Dir)
			}
		}
		return nil
	},
}
