package recipe

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dub-go/dub/internal/docnode"
	"github.com/dub-go/dub/internal/semver"
)

// toDocument converts a Recipe into the docnode tree WriteRecipe
// serializes. It only round-trips the fields a generated or rewritten
// recipe actually needs; hand-authored recipes carry more document
// shapes than Go can represent losslessly (comments, key ordering
// quirks in the indented-block front end), so Write is meant for
// recipes dub itself produces, not for rewriting a user's file in
// place.
func toDocument(r *Recipe) *docnode.Node {
	pairs := []docnode.Pair{
		{Key: "name", Value: docnode.NewScalar(r.Name)},
	}
	if r.Version != "" {
		pairs = append(pairs, docnode.Pair{Key: "version", Value: docnode.NewScalar(r.Version)})
	}
	if r.Description != "" {
		pairs = append(pairs, docnode.Pair{Key: "description", Value: docnode.NewScalar(r.Description)})
	}
	if r.License != "" {
		pairs = append(pairs, docnode.Pair{Key: "license", Value: docnode.NewScalar(r.License)})
	}
	if len(r.Settings.SourceFiles) > 0 {
		items := make([]*docnode.Node, len(r.Settings.SourceFiles))
		for i, s := range r.Settings.SourceFiles {
			items[i] = docnode.NewScalar(s)
		}
		pairs = append(pairs, docnode.Pair{Key: "sourceFiles", Value: docnode.NewSequence(items...)})
	}
	if len(r.Settings.ImportPaths) > 0 {
		items := make([]*docnode.Node, len(r.Settings.ImportPaths))
		for i, s := range r.Settings.ImportPaths {
			items[i] = docnode.NewScalar(s)
		}
		pairs = append(pairs, docnode.Pair{Key: "importPaths", Value: docnode.NewSequence(items...)})
	}
	if main := r.Settings.MainSourceFile.Value; main != "" {
		pairs = append(pairs, docnode.Pair{Key: "mainSourceFile", Value: docnode.NewScalar(main)})
	}
	if name := r.Settings.TargetType.Value; name != "" {
		pairs = append(pairs, docnode.Pair{Key: "targetType", Value: docnode.NewScalar(string(name))})
	}
	if len(r.Dependencies) > 0 {
		depPairs := make([]docnode.Pair, 0, len(r.Dependencies))
		for name, spec := range r.Dependencies {
			constraint := spec.Range.String()
			if spec.Kind == semver.LocatorAny {
				constraint = "*"
			}
			depPairs = append(depPairs, docnode.Pair{Key: name, Value: docnode.NewScalar(constraint)})
		}
		pairs = append(pairs, docnode.Pair{Key: "dependencies", Value: docnode.NewMapping(depPairs...)})
	}
	return docnode.NewMapping(pairs...)
}

// Write serializes r to path using atomic file operations: write to a
// temp file in the destination directory, sync, then rename. The
// temp+rename sequence keeps a reader from ever observing a partially
// written recipe file.
func Write(r *Recipe, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("recipe: creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".recipe-*.tmp")
	if err != nil {
		return fmt.Errorf("recipe: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	out, err := docnode.ToYAML(toDocument(r))
	if err != nil {
		return fmt.Errorf("recipe: encoding %s: %w", r.Name, err)
	}
	if _, err := tmp.Write(out); err != nil {
		return fmt.Errorf("recipe: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("recipe: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("recipe: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("recipe: renaming into place: %w", err)
	}

	success = true
	return nil
}
