package supplier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dub-go/dub/internal/semver"
)

// FilesystemSupplier treats a local directory as a package index:
// archives are named "<name>_<version>.zip".
type FilesystemSupplier struct {
	Dir string
}

// NewFilesystemSupplier returns a supplier that looks for package
// archives directly under dir.
func NewFilesystemSupplier(dir string) *FilesystemSupplier {
	return &FilesystemSupplier{Dir: dir}
}

func (s *FilesystemSupplier) String() string {
	return fmt.Sprintf("filesystem(%s)", s.Dir)
}

// Describe lists every "<name>_<version>.zip" file present in Dir.
func (s *FilesystemSupplier) Describe(ctx context.Context, name string) ([]VersionInfo, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, &Error{Kind: ErrConnection, Supplier: s.String(), Package: name, Message: "reading index directory", Cause: err}
	}

	prefix := name + "_"
	var versions []VersionInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fname := e.Name()
		if !strings.HasPrefix(fname, prefix) || !strings.HasSuffix(fname, ".zip") {
			continue
		}
		versionStr := strings.TrimSuffix(strings.TrimPrefix(fname, prefix), ".zip")
		v, err := semver.ParseVersion(versionStr)
		if err != nil {
			continue // not a package archive this supplier recognizes
		}
		info, statErr := e.Info()
		var size int64
		if statErr == nil {
			size = info.Size()
		}
		versions = append(versions, VersionInfo{Version: v, ArchiveSize: size})
	}
	return versions, nil
}

func (s *FilesystemSupplier) archivePath(name string, version semver.Version) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.zip", name, version.String()))
}

// Fetch unpacks the archive for name/version directly from Dir; a
// missing connection never happens for a local directory, so there is
// nothing to retry here — a missing or corrupt archive is a terminal
// error.
func (s *FilesystemSupplier) Fetch(ctx context.Context, name string, version semver.Version, destDir string) (PackageHandle, error) {
	archivePath := s.archivePath(name, version)
	if _, err := os.Stat(archivePath); err != nil {
		return PackageHandle{}, &Error{Kind: ErrNotFound, Supplier: s.String(), Package: name, Message: fmt.Sprintf("no archive for version %s", version), Cause: err}
	}

	if err := validateZip(archivePath); err != nil {
		return PackageHandle{}, &Error{Kind: ErrCorruptArchive, Supplier: s.String(), Package: name, Message: "archive failed validation", Cause: err}
	}

	checksum, err := sha256File(archivePath)
	if err != nil {
		return PackageHandle{}, &Error{Kind: ErrConnection, Supplier: s.String(), Package: name, Message: "hashing archive", Cause: err}
	}

	unpackDir := filepath.Join(destDir, fmt.Sprintf("%s-%s", name, version.String()))
	if err := os.MkdirAll(unpackDir, 0755); err != nil {
		return PackageHandle{}, &Error{Kind: ErrConnection, Supplier: s.String(), Package: name, Message: "creating unpack directory", Cause: err}
	}
	if err := extractZip(archivePath, unpackDir); err != nil {
		return PackageHandle{}, &Error{Kind: ErrCorruptArchive, Supplier: s.String(), Package: name, Message: "extracting archive", Cause: err}
	}

	return PackageHandle{Dir: unpackDir, Version: version, Checksum: checksum}, nil
}
