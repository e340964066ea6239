package main

import (
	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/resolver"
	"github.com/dub-go/dub/internal/selections"
)

var (
	upgradeSelectFlag      bool
	upgradeMissingOnlyFlag bool
	upgradeVerifyFlag      bool
	upgradePrereleaseFlag  bool
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Re-run dependency resolution and update dub.selections.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadRootRecipe()
		if err != nil {
			return err
		}
		rootDir := root.SourcePath

		cfg, err := dubConfig()
		if err != nil {
			return err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}
		mgr := pkgmanager.New(cfg)

		existingFile, err := selections.Load(rootDir)
		if err != nil {
			return err
		}
		var existing map[string]selections.Locator
		if existingFile != nil {
			existing = existingFile.Versions
		}

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		suppliers := buildSuppliers(settings)

		policy := resolver.Policy{
			SelectMissing: upgradeMissingOnlyFlag,
			UpgradeAll:    upgradeSelectFlag || (!upgradeMissingOnlyFlag && !upgradeVerifyFlag),
			PreReleases:   upgradePrereleaseFlag,
		}
		if upgradeVerifyFlag {
			policy.UpgradeAll = false
			policy.SelectMissing = false
		}

		p, _, err := currentPlatform()
		if err != nil {
			return err
		}

		selected, err := resolver.Resolve(cmd.Context(), resolver.Input{
			Root:      root,
			Policy:    policy,
			Existing:  existing,
			Suppliers: suppliers,
			Overrides: overridesAsVersions(mgr),
			Packages:  mgr,
			GitHub:    resolver.NewGitHubResolver(githubToken()),
			Platform:  p,
		})
		if err != nil {
			return err
		}

		if upgradeVerifyFlag {
			printInfo("Selections are consistent with the current recipe.")
			return nil
		}

		out := make(map[string]selections.Locator, len(selected))
		for name, sel := range selected {
			out[name] = sel.Locator
		}
		f, err := selections.Upgrade(rootDir, out)
		if err != nil {
			return err
		}
		if err := f.Save(); err != nil {
			return err
		}
		printInfo("Upgraded dependency selections.")
		return nil
	},
}

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeSelectFlag, "select", false, "Discard existing selections and re-select everything")
	upgradeCmd.Flags().BoolVar(&upgradeMissingOnlyFlag, "missing-only", false, "Resolve only names absent from the selections file")
	upgradeCmd.Flags().BoolVar(&upgradeVerifyFlag, "verify", false, "Check selections are still consistent, without writing")
	upgradeCmd.Flags().BoolVar(&upgradePrereleaseFlag, "prerelease", false, "Allow prerelease versions to win selection")
}
