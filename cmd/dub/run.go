package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/buildcache"
)

var runCmd = &cobra.Command{
	Use:   "run [-- args...]",
	Short: "Build the project, then execute its main executable",
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := runBuild(cmd.Context())
		if err != nil {
			return err
		}
		bin, err := rootArtifactPath(proj)
		if err != nil {
			return err
		}
		return execBinary(cmd, bin, args)
	},
}

// rootArtifactPath locates the artifact directory the build cache
// installed the root package's own target under, and returns the
// executable inside it.
func rootArtifactPath(proj *buildProject) (string, error) {
	if len(proj.targets) == 0 {
		return "", fmt.Errorf("%s declares no build targets", proj.root.Name)
	}
	root := proj.targets[len(proj.targets)-1]

	version := proj.root.Version
	if version == "" {
		version = "0.0.0"
	}
	store, err := buildcache.Open(proj.cfg, root.Name, version, configFlag)
	if err != nil {
		return "", err
	}
	entry, ok, err := store.Lookup(root.Identity)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no cached artifact for %s; build may have failed", root.Name)
	}

	name := root.Settings.TargetName.Get(root.Name)
	return filepath.Join(entry.ArtifactDir, name), nil
}

// execBinary runs bin, streaming stdio straight through and honoring
// ctx cancellation the same way buildcache.Invoke does for the
// compiler itself.
func execBinary(cmd *cobra.Command, bin string, args []string) error {
	c := exec.CommandContext(cmd.Context(), bin, args...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
