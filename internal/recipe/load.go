package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/docnode"
	"github.com/dub-go/dub/internal/semver"
)

// recipeFileNames lists the filenames Load looks for when path is a
// directory, tried in order.
var recipeFileNames = []string{"recipe.json", "recipe.sdl", "recipe.yaml", "recipe.yml"}

// Load reads a recipe from path, which may name a recipe file directly
// or a package directory containing one of recipeFileNames. The front
// end used to parse the document is chosen from the file extension:
// ".json" goes to the JSON front end, ".yaml" and ".yml" to the YAML
// front end, and every other extension (".sdl", none, or anything
// unrecognized) to the indented-block grammar.
func Load(path string) (*Recipe, error) {
	r, err := loadRaw(path)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := loadInlineSubpackages(r); err != nil {
		return nil, err
	}
	if err := checkDependencyCycles(r, nil); err != nil {
		return nil, err
	}
	return r, nil
}

// loadRaw parses and binds the recipe at path without validating it,
// resolving its subpackages, or walking its dependency graph. It's the
// primitive checkDependencyCycles uses to inspect a path dependency's
// own dependencies without re-entering Load's full pipeline — calling
// Load recursively there would re-run cycle detection from a fresh,
// ancestor-less starting point on every hop and never terminate on an
// actual cycle.
func loadRaw(path string) (*Recipe, error) {
	resolved, err := resolveRecipeFile(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("recipe: reading %s: %w", resolved, err)
	}

	node, err := parseRecipeDocument(resolved, data)
	if err != nil {
		return nil, err
	}
	hoistPlatformKeys(node)

	r, err := configdoc.Parse[Recipe](node, configdoc.StrictWarn)
	if err != nil {
		return nil, fmt.Errorf("recipe: %s: %w", resolved, err)
	}
	r.SourcePath = filepath.Dir(resolved)
	return r, nil
}

func resolveRecipeFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("recipe: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	for _, name := range recipeFileNames {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("recipe: no recipe file found in %s (looked for %s)", path, strings.Join(recipeFileNames, ", "))
}

// platformSuffixable lists the setting keys that accept a trailing
// platform specification ("dflags-windows-x86"). libs and environment
// are absent: those are pattern fields whose suffix capture already
// happens in the binder.
var platformSuffixable = map[string]bool{
	"sourceFiles":          true,
	"importPaths":          true,
	"stringImportPaths":    true,
	"versions":             true,
	"debugVersions":        true,
	"dflags":               true,
	"lflags":               true,
	"linkFiles":            true,
	"copyFiles":            true,
	"preGenerateCommands":  true,
	"postGenerateCommands": true,
	"preBuildCommands":     true,
	"postBuildCommands":    true,
}

// hoistPlatformKeys rewrites platform-suffixed setting keys into the
// synthetic "platformSettings" mapping the BuildSettings schema binds
// into PlatformBlocks: "dflags-windows" becomes
// platformSettings.windows.dflags. Decoding the suffix once here, at
// parse time, means every later platform filter is a map lookup rather
// than a re-parse of the key. Configuration blocks and inline
// subpackages get the same rewrite.
func hoistPlatformKeys(node *docnode.Node) {
	if node == nil || node.Kind != docnode.Mapping {
		return
	}
	kept := node.Pairs[:0]
	blocks := map[string]*docnode.Node{}
	var blockOrder []string
	for _, p := range node.Pairs {
		i := strings.IndexByte(p.Key, '-')
		if i <= 0 || i == len(p.Key)-1 || !platformSuffixable[p.Key[:i]] {
			kept = append(kept, p)
			continue
		}
		suffix := p.Key[i+1:]
		b, ok := blocks[suffix]
		if !ok {
			b = &docnode.Node{Kind: docnode.Mapping, Pos: p.KeyPos}
			blocks[suffix] = b
			blockOrder = append(blockOrder, suffix)
		}
		b.Set(p.Key[:i], p.Value)
	}
	node.Pairs = kept
	if len(blocks) > 0 {
		ps := node.Get("platformSettings")
		if ps == nil || ps.Kind != docnode.Mapping {
			ps = &docnode.Node{Kind: docnode.Mapping}
			node.Set("platformSettings", ps)
		}
		for _, suffix := range blockOrder {
			ps.Set(suffix, blocks[suffix])
		}
	}

	if cfgs := node.Get("configurations"); cfgs != nil && cfgs.Kind == docnode.Sequence {
		for _, item := range cfgs.Items {
			hoistPlatformKeys(item)
		}
	}
	if subs := node.Get("subpackages"); subs != nil && subs.Kind == docnode.Sequence {
		for _, item := range subs.Items {
			hoistPlatformKeys(item)
		}
	}
}

func parseRecipeDocument(file string, data []byte) (*docnode.Node, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return docnode.ParseJSON(file, data)
	case ".yaml", ".yml":
		return docnode.ParseYAML(file, data)
	case ".sdl", "":
		return docnode.ParseBlock(file, data)
	default:
		return docnode.ParseBlock(file, data)
	}
}

// loadInlineSubpackages resolves every SubpackageRef with a Path into
// a fully loaded Recipe; a subpackage may not nest further subpackages.
func loadInlineSubpackages(r *Recipe) error {
	for i := range r.Subpackages {
		ref := &r.Subpackages[i]
		if ref.Path == "" {
			continue
		}
		full := filepath.Join(r.SourcePath, ref.Path)
		sub, err := Load(full)
		if err != nil {
			return fmt.Errorf("recipe %q: subpackage path %q: %w", r.Name, ref.Path, err)
		}
		if len(sub.Subpackages) > 0 {
			return fmt.Errorf("recipe %q: subpackage %q may not itself declare subpackages", r.Name, sub.Name)
		}
		ref.Inline = sub
	}
	return nil
}

// checkDependencyCycles walks path-type dependencies looking for a
// cycle back to an ancestor.
func checkDependencyCycles(r *Recipe, ancestors []string) error {
	here := r.SourcePath
	for _, prior := range ancestors {
		if prior == here {
			return fmt.Errorf("recipe %q: circular path dependency through %s", r.Name, here)
		}
	}
	next := make([]string, len(ancestors), len(ancestors)+1)
	copy(next, ancestors)
	next = append(next, here)

	for depName, spec := range r.Dependencies {
		if spec.Kind != semver.LocatorPath {
			continue
		}
		depPath := filepath.Join(r.SourcePath, spec.Path)
		dep, err := loadRaw(depPath)
		if err != nil {
			return fmt.Errorf("recipe %q: path dependency %q: %w", r.Name, depName, err)
		}
		if err := checkDependencyCycles(dep, next); err != nil {
			return err
		}
	}
	return nil
}
