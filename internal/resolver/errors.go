package resolver

import (
	"fmt"
	"strings"
)

// DependencyConflict reports that no single version of a package can
// satisfy every constraint contributed against it. Resolution is never
// retried once this is raised.
type DependencyConflict struct {
	Name         string
	Contributors []string // e.g. "A depends on X ~>1.0"
}

func (e *DependencyConflict) Error() string {
	return fmt.Sprintf("no version of %q satisfies every constraint: %s", e.Name, strings.Join(e.Contributors, "; "))
}

// CycleError reports a circular dependency discovered through
// path-based edges.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular path dependency: %s", strings.Join(e.Path, " -> "))
}

// NoMatchingConfiguration reports that a dependency declares no
// configuration compatible with the current platform.
type NoMatchingConfiguration struct {
	Name string
}

func (e *NoMatchingConfiguration) Error() string {
	return fmt.Sprintf("%q declares no configuration compatible with this platform", e.Name)
}

// NoSupplierMatch reports that no configured supplier advertises a
// version satisfying the constraints collected for a name.
type NoSupplierMatch struct {
	Name         string
	Contributors []string
}

func (e *NoSupplierMatch) Error() string {
	return fmt.Sprintf("no supplier has a version of %q satisfying: %s", e.Name, strings.Join(e.Contributors, "; "))
}
