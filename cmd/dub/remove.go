package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/semver"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>@<version>",
	Short: "Remove a fetched package from the package cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, versionStr := splitNameVersion(args[0])
		if versionStr == "" {
			return fmt.Errorf("remove requires an explicit version: %s@<version>", name)
		}
		version, err := semver.ParseVersion(versionStr)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", versionStr, err)
		}

		cfg, err := dubConfig()
		if err != nil {
			return err
		}
		mgr := pkgmanager.New(cfg)
		if err := mgr.Remove(name, version); err != nil {
			return err
		}
		printInfof("Removed %s@%s\n", name, version.String())
		return nil
	},
}
