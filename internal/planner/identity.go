package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dub-go/dub/internal/platform"
)

// HashPolicy selects how a target's build identity folds in its source
// files: by content (stable across mtime-preserving
// copies and checkouts) or by modification time (cheaper, but ties
// reuse to the filesystem's own timestamps).
type HashPolicy int

const (
	HashBased HashPolicy = iota
	TimeBased
)

// ComputeIdentity folds t's compiler identity, target shape, merged
// flags, upstream identities, and source inputs into a single sha256
// digest. Source file content is streamed through the hash rather than
// read whole into memory.
// plat folds the host's OS, architecture, and platform tags (including
// the linux_family and libc tags platform.DetectTarget assigns) into
// the digest: a statically identical recipe still needs a distinct
// artifact on a different OS, arch, or libc.
func ComputeIdentity(t *Target, compilerID string, policy HashPolicy, plat platform.Platform) (string, error) {
	h := sha256.New()
	write := func(s string) { fmt.Fprintf(h, "%s\x00", s) }

	write(compilerID)
	write(string(t.TargetType))
	write(t.Settings.TargetName.Get(t.Name))
	write(policyTag(policy))
	write("os:" + plat.OS())
	write("arch:" + plat.Arch())
	for _, tag := range canonicalStrings(plat.Tags) {
		write("platformTag:" + tag)
	}

	for _, s := range t.UpstreamIdentities {
		write("upstream:" + s)
	}
	for _, s := range canonicalStrings(t.Settings.ImportPaths) {
		write("importPath:" + s)
	}
	for _, s := range canonicalStrings(t.Settings.StringImportPaths) {
		write("stringImportPath:" + s)
	}
	for _, s := range canonicalStrings(t.Settings.Versions) {
		write("version:" + s)
	}
	for _, s := range canonicalStrings(t.Settings.DebugVersions) {
		write("debugVersion:" + s)
	}
	for _, s := range canonicalStrings(t.Settings.DFlags) {
		write("dflag:" + s)
	}
	for _, s := range canonicalStrings(t.Settings.LFlags) {
		write("lflag:" + s)
	}
	for _, s := range canonicalStrings(t.Settings.LinkFiles) {
		write("linkFile:" + s)
	}
	for _, name := range sortedKeys(t.Settings.Libs) {
		write("lib:" + name + "=" + t.Settings.Libs[name])
	}
	for _, s := range t.LinkInputs {
		write("linkInput:" + s)
	}

	sources := canonicalStrings(t.Settings.SourceFiles)
	for _, rel := range sources {
		switch policy {
		case HashBased:
			digest, err := hashFile(filepath.Join(t.SourceDir, rel))
			if err != nil {
				return "", err
			}
			write("source:" + rel + ":" + digest)
		case TimeBased:
			mtime, err := fileModTime(filepath.Join(t.SourceDir, rel))
			if err != nil {
				return "", err
			}
			write("source:" + rel + ":" + mtime)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func policyTag(p HashPolicy) string {
	if p == TimeBased {
		return "time"
	}
	return "hash"
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("planner: reading %s for build identity: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("planner: hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileModTime(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("planner: statting %s for build identity: %w", path, err)
	}
	return info.ModTime().UTC().Format("20060102150405.000000000"), nil
}

func canonicalStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
