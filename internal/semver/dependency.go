package semver

import (
	"fmt"

	"github.com/dub-go/dub/internal/docnode"
)

// LocatorKind distinguishes the four forms a DependencySpec can take.
type LocatorKind int

const (
	LocatorRange LocatorKind = iota
	LocatorPath
	LocatorRepository
	LocatorAny
)

// DependencySpec is one entry of a recipe's dependencies map.
type DependencySpec struct {
	Kind LocatorKind

	Range Range // valid when Kind == LocatorRange

	Path string // valid when Kind == LocatorPath

	RepositoryURL string // valid when Kind == LocatorRepository
	Ref           string // commit/tag/branch within the repository

	// Pin is an explicit version recorded alongside a non-range
	// locator (path or repository), used to check compatibility
	// against any range constraint also naming this package.
	Pin      Version
	HasPin   bool
	Optional bool
	Default  bool
}

// UnmarshalNode implements configdoc.NodeUnmarshaler: a DependencySpec
// binds from either a bare scalar range string ("~>1.2.3", "*") or a
// mapping carrying "path", "repository"+"version", or "version" plus
// the optional/default flags.
func (d *DependencySpec) UnmarshalNode(n *docnode.Node) error {
	if n.Kind == docnode.Scalar {
		return d.fromScalar(n.ScalarValue)
	}
	if n.Kind != docnode.Mapping {
		return fmt.Errorf("dependency spec must be a scalar or mapping, got %s", n.Kind)
	}

	if p := n.Get("path"); p != nil {
		d.Kind = LocatorPath
		d.Path = p.ScalarValue
	} else if repo := n.Get("repository"); repo != nil {
		d.Kind = LocatorRepository
		d.RepositoryURL = repo.ScalarValue
		if ref := n.Get("version"); ref != nil {
			d.Ref = ref.ScalarValue
		}
	} else if v := n.Get("version"); v != nil {
		if err := d.fromScalar(v.ScalarValue); err != nil {
			return err
		}
	} else {
		d.Kind = LocatorAny
	}

	if pin := n.Get("pin"); pin != nil {
		ver, err := ParseVersion(pin.ScalarValue)
		if err != nil {
			return err
		}
		d.Pin, d.HasPin = ver, true
	}
	if opt := n.Get("optional"); opt != nil {
		d.Optional = opt.ScalarValue == "true"
	}
	if def := n.Get("default"); def != nil {
		d.Default = def.ScalarValue == "true"
	}
	return nil
}

func (d *DependencySpec) fromScalar(s string) error {
	if s == "*" {
		d.Kind = LocatorAny
		return nil
	}
	r, err := ParseRange(s)
	if err != nil {
		return err
	}
	d.Kind = LocatorRange
	d.Range = r
	return nil
}

// CompatiblePin reports whether an explicit pin on a path/repository
// locator lies within a range constraint discovered elsewhere for the
// same package name.
func (d DependencySpec) CompatiblePin(r Range) bool {
	if !d.HasPin {
		return true
	}
	return r.Matches(d.Pin)
}
