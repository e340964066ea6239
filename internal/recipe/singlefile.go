package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dub-go/dub/internal/configdoc"
	"github.com/dub-go/dub/internal/docnode"
)

// Embedded recipe markers accepted at the top of a single-file package.
// The marker names the format of the comment's body; the comment must be
// the first non-blank content in the file (a shebang line may precede it).
var embeddedMarkers = []struct {
	open   string
	format string
	close  string
}{
	{"/+ dub.sdl:", "sdl", "+/"},
	{"/+ dub.json:", "json", "+/"},
	{"/* dub.sdl:", "sdl", "*/"},
	{"/* dub.json:", "json", "*/"},
}

// LoadSingleFile reads a source file whose leading comment block embeds
// a recipe document and returns the one-shot project it describes. The
// returned recipe's source list is exactly the file itself, and relative
// paths inside the embedded document resolve against the file's own
// directory, so the package stays relocatable no matter where the
// command was invoked from.
func LoadSingleFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: reading %s: %w", path, err)
	}

	body, format, err := extractEmbeddedRecipe(string(data))
	if err != nil {
		return nil, fmt.Errorf("recipe: %s: %w", path, err)
	}

	var node *docnode.Node
	switch format {
	case "json":
		node, err = docnode.ParseJSON(path, []byte(body))
	default:
		node, err = docnode.ParseBlock(path, []byte(body))
	}
	if err != nil {
		return nil, err
	}
	hoistPlatformKeys(node)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(abs)

	if !node.Has("name") {
		node.Set("name", docnode.NewScalar(sanitizePackageName(strings.TrimSuffix(base, filepath.Ext(base)))))
	}

	// The file is its own complete source list; whatever sourceFiles the
	// embedded document names are ignored in favor of the file itself.
	// Filled in on the node before binding, since binding validates the
	// finished record.
	node.Set("sourceFiles", docnode.NewSequence(docnode.NewScalar(base)))
	if !node.Has("mainSourceFile") {
		node.Set("mainSourceFile", docnode.NewScalar(base))
	}
	if !node.Has("targetType") {
		node.Set("targetType", docnode.NewScalar(string(TargetExecutable)))
	}

	r, err := configdoc.Parse[Recipe](node, configdoc.StrictWarn)
	if err != nil {
		return nil, fmt.Errorf("recipe: %s: %w", path, err)
	}
	r.SourcePath = filepath.Dir(abs)

	if len(r.Subpackages) > 0 {
		return nil, fmt.Errorf("recipe %q: a single-file package may not declare subpackages", r.Name)
	}
	return r, nil
}

// HasEmbeddedRecipe reports whether the file at path opens with one of
// the embedded recipe markers, without fully parsing it.
func HasEmbeddedRecipe(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	_, _, err = extractEmbeddedRecipe(string(data))
	return err == nil
}

// extractEmbeddedRecipe locates the leading recipe comment and returns
// its body and declared format. Only blank lines and a single shebang
// line may precede the comment.
func extractEmbeddedRecipe(src string) (body, format string, err error) {
	rest := src
	for {
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		if strings.HasPrefix(trimmed, "#!") {
			if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
				rest = trimmed[i+1:]
				continue
			}
			return "", "", fmt.Errorf("no embedded recipe comment found")
		}
		rest = trimmed
		break
	}

	for _, m := range embeddedMarkers {
		if !strings.HasPrefix(rest, m.open) {
			continue
		}
		after := rest[len(m.open):]
		end := strings.Index(after, m.close)
		if end < 0 {
			return "", "", fmt.Errorf("embedded %s recipe comment is never closed with %q", m.format, m.close)
		}
		return after[:end], m.format, nil
	}
	return "", "", fmt.Errorf("no embedded recipe comment found")
}

// sanitizePackageName lowers a file stem into the package name grammar,
// replacing anything outside it with "-".
func sanitizePackageName(stem string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "app"
	}
	return name
}
