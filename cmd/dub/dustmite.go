package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// dustmiteCmd is a stub: the DustMite reduction tool is a separate
// project shipped alongside dub, not part of this module. The command
// exists so the surface stays stable for scripts that probe it.
var dustmiteCmd = &cobra.Command{
	Use:    "dustmite <destination>",
	Short:  "Create a reduced test case (not implemented by this build)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("dustmite: test-case reduction is outside this build's scope")
	},
}
