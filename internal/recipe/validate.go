package recipe

import (
	"fmt"
	"strings"
)

// ValidationError is one structural defect found in a recipe.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateStructural runs the fast, dependency-free checks suitable
// for load-time validation: name grammar, mainSourceFile membership,
// configuration name grammar, and dependency spec sanity. It never
// touches the filesystem or a registry; resolving whether a named
// dependency actually exists happens later, once the resolver has a
// package index to check against.
func ValidateStructural(r *Recipe) []ValidationError {
	var errs []ValidationError

	if r.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required"})
	} else if !nameGrammar.MatchString(r.Name) {
		errs = append(errs, ValidationError{Field: "name", Message: "must match [a-z0-9_-]+"})
	}

	mainSrc := r.Settings.MainSourceFile.Get("")
	if r.Settings.TargetType.Get(TargetExecutable) == TargetExecutable {
		if mainSrc == "" {
			errs = append(errs, ValidationError{Field: "mainSourceFile", Message: "is required for an executable target"})
		} else {
			found := false
			for _, s := range r.Settings.SourceFiles {
				if s == mainSrc {
					found = true
					break
				}
			}
			if !found {
				errs = append(errs, ValidationError{Field: "mainSourceFile", Message: fmt.Sprintf("%q is not in sourceFiles", mainSrc)})
			}
		}
	}

	seen := map[string]bool{}
	for i, cfg := range r.Configurations {
		field := fmt.Sprintf("configurations[%d]", i)
		if cfg.Name == "" {
			errs = append(errs, ValidationError{Field: field, Message: "name is required"})
			continue
		}
		if !nameGrammar.MatchString(cfg.Name) {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("name %q must match [a-z0-9_-]+", cfg.Name)})
		}
		if seen[cfg.Name] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate configuration name %q", cfg.Name)})
		}
		seen[cfg.Name] = true
	}

	for depName := range r.Dependencies {
		if strings.TrimSpace(depName) == "" {
			errs = append(errs, ValidationError{Field: "dependencies", Message: "dependency name must not be blank"})
		}
	}

	for i, sub := range r.Subpackages {
		if sub.Path == "" && sub.Inline == nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("subpackages[%d]", i), Message: "must name a path or carry an inline recipe"})
		}
	}

	return errs
}
