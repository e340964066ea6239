package main

import (
	"github.com/spf13/cobra"
)

// defaultTestConfig names the configuration used for `dub test`, mirroring
// the common "unittest" configuration convention; an explicit --config
// still wins if the user passed one.
const defaultTestConfig = "unittest"

var testCmd = &cobra.Command{
	Use:   "test [-- args...]",
	Short: "Build the project in its test configuration, then run it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configFlag == "" {
			configFlag = defaultTestConfig
		}
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
