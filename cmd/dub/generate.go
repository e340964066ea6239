package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// generateCmd is a stub: the code-generation backends that emit IDE
// project files are outside this tool's scope.
// The command exists so scripts invoking `dub generate <target>`
// against this build get a clear, actionable error instead of "unknown
// command".
var generateCmd = &cobra.Command{
	Use:   "generate <target>",
	Short: "Generate an IDE project file (not implemented by this build)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("generate: IDE project file generation for %q is outside this build's scope", args[0])
	},
}
