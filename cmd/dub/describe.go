package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/buildcache"
)

var (
	describeDataFlag           []string
	describeDataListFlag       bool
	describeData0Flag          bool
	describeFilterVersionsFlag bool
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the resolved build plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := planProject(cmd.Context())
		if err != nil {
			return err
		}

		sep := "\n"
		if describeData0Flag {
			sep = "\x00"
		}

		seenName := map[string]bool{}
		for _, t := range proj.targets {
			if describeFilterVersionsFlag {
				if seenName[t.Name] {
					continue // one line per distinct package name, not per subpackage target
				}
				seenName[t.Name] = true
			}
			version := proj.root.Version
			if version == "" {
				version = "0.0.0"
			}
			var artifactPath string
			if store, err := buildcache.Open(proj.cfg, t.Name, version, configFlag); err == nil {
				if entry, ok, err := store.Lookup(t.Identity); err == nil && ok {
					artifactPath = entry.ArtifactDir
				}
			}

			fields := map[string]string{
				"name":              targetLabel(&t),
				"targetType":        string(t.TargetType),
				"targetPath":        t.SourceDir,
				"mainSourceFile":    t.Settings.MainSourceFile.Get(""),
				"identity":          t.Identity,
				"cacheArtifactPath": artifactPath,
			}

			if len(describeDataFlag) == 0 {
				fmt.Printf("%s (%s) [%s] identity=%s\n", fields["name"], fields["targetType"], t.SourceDir, t.Identity[:min(12, len(t.Identity))])
				continue
			}

			var parts []string
			for _, f := range describeDataFlag {
				parts = append(parts, fields[f])
			}
			if describeDataListFlag || describeData0Flag {
				for _, p := range parts {
					fmt.Print(p, sep)
				}
			} else {
				fmt.Println(filepath.Join(parts...))
			}
		}
		return nil
	},
}

func init() {
	describeCmd.Flags().StringArrayVar(&describeDataFlag, "data", nil, "Field to print (repeatable): name|targetType|targetPath|mainSourceFile|identity|cacheArtifactPath")
	describeCmd.Flags().BoolVar(&describeDataListFlag, "data-list", false, "Print each --data value on its own line")
	describeCmd.Flags().BoolVar(&describeData0Flag, "data-0", false, "Print each --data value NUL-terminated")
	describeCmd.Flags().BoolVar(&describeFilterVersionsFlag, "filter-versions", false, "Print one line per distinct package name, collapsing subpackage targets")
}
