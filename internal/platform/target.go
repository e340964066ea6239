// Package platform provides the Platform descriptor and platform-spec
// string matcher: an ordered set of platform
// tags, architecture tags, and compiler identity, matched against the
// dash-separated "[-platform][-arch][-compiler]" strings that appear
// in recipe `when` clauses and platform-suffixed setting names.
package platform

import "strings"

// ValidLinuxFamilies lists the recognized linux_family values, carried
// over unchanged from the tool-install domain's distro detection: a
// package's platform filter may still name a Linux family tag even
// though this domain has no package-manager actions of its own.
var ValidLinuxFamilies = []string{"debian", "rhel", "arch", "alpine", "suse"}

// Platform is an ordered-set descriptor: platform tags, architecture
// tags, compiler canonical name, compiler binary name, frontend
// version, and compiler version.
type Platform struct {
	Tags     []string // e.g. {"posix", "linux"}; more general tags first
	ArchTags []string // e.g. {"x86_64"}

	CompilerCanonicalName string // e.g. "dmd", "ldc2", "gdc"
	CompilerBinaryName    string // the executable actually invoked

	FrontendVersion string
	CompilerVersion string
}

// NewTarget builds a Platform from an OS/arch pair plus the detected
// Linux family, mirroring the inputs DetectTarget already collects.
func NewTarget(os, arch, linuxFamily, compilerName string) Platform {
	tags := []string{}
	switch os {
	case "linux":
		tags = append(tags, "posix", "linux")
		if linuxFamily != "" {
			tags = append(tags, linuxFamily)
		}
	case "darwin":
		tags = append(tags, "posix", "osx")
	case "windows":
		tags = append(tags, "windows")
	default:
		tags = append(tags, os)
	}
	return Platform{
		Tags:                  tags,
		ArchTags:              []string{arch},
		CompilerCanonicalName: compilerName,
	}
}

// Matches implements the platform-spec-string matcher, tolerant of
// omitted positions and ordered: if a compiler part appears, it must
// come last. Each dash-separated part of spec must classify as either an
// arch tag, a platform tag, or — only in the final position — the
// compiler's canonical or binary name; any part that fails every check
// makes the whole spec fail to match. An empty spec matches any
// platform.
func (p Platform) Matches(spec string) bool {
	spec = strings.Trim(spec, "-")
	if spec == "" {
		return true
	}
	parts := strings.Split(spec, "-")
	for i, part := range parts {
		last := i == len(parts)-1
		switch {
		case last && p.CompilerCanonicalName != "" && part == p.CompilerCanonicalName:
		case last && p.CompilerBinaryName != "" && part == p.CompilerBinaryName:
		case contains(p.ArchTags, part):
		case contains(p.Tags, part):
		default:
			return false
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// OS returns the platform's primary OS tag, if one of the well-known
// ones is present ("linux", "osx", "windows"); empty otherwise.
func (p Platform) OS() string {
	for _, want := range []string{"linux", "osx", "windows"} {
		if contains(p.Tags, want) {
			return want
		}
	}
	return ""
}

// Arch returns the first architecture tag, or empty if none is set.
func (p Platform) Arch() string {
	if len(p.ArchTags) == 0 {
		return ""
	}
	return p.ArchTags[0]
}

// LinuxFamily returns the linux_family tag if present among Tags.
func (p Platform) LinuxFamily() string {
	for _, tag := range p.Tags {
		if contains(ValidLinuxFamilies, tag) {
			return tag
		}
	}
	return ""
}
