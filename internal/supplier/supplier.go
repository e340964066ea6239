// Package supplier implements the uniform interface over filesystem,
// registry, and mirror/maven package sources: list known
// versions of a named package, and fetch one of them into a local
// destination directory as a unpacked package handle. The resolver
// consults a chain of these to satisfy an unresolved dependency; the
// package manager consults one directly when a user asks to fetch a
// specific package by name.
package supplier

import (
	"context"
	"time"

	"github.com/dub-go/dub/internal/semver"
)

// VersionInfo is one entry of a Describe result: a known version and
// enough metadata to fetch it without a second round trip.
type VersionInfo struct {
	Version semver.Version

	// ArchiveSize is the advertised size of the package archive in
	// bytes, when the supplier's metadata reports it (0 if unknown).
	ArchiveSize int64
}

// PackageHandle is the result of a successful Fetch: the package has
// been unpacked under Dir, ready for the package manager to move into
// the local cache.
type PackageHandle struct {
	Dir      string
	Version  semver.Version
	Checksum string // sha256 of the fetched archive, hex-encoded
}

// Supplier is implemented by each package source variant:
// FilesystemSupplier, RegistrySupplier, MirrorSupplier.
type Supplier interface {
	// Describe lists the versions of name known to this supplier.
	Describe(ctx context.Context, name string) ([]VersionInfo, error)

	// Fetch downloads or copies the named package at version into a
	// fresh subdirectory of destDir, unpacking its archive, and
	// returns a handle to the unpacked tree.
	Fetch(ctx context.Context, name string, version semver.Version, destDir string) (PackageHandle, error)

	// String returns a name for the supplier itself, used in
	// diagnostics and conflict reports to say which source a version
	// came from.
	String() string
}

// TimeBudget bounds a single metadata or fetch request: IdleTimeout is
// applied as the client's response-header timeout, aborting a request
// whose response headers do not arrive within it; TotalTimeout aborts
// the request outright regardless of progress. A response body that
// stalls after its headers arrived is bounded only by TotalTimeout.
type TimeBudget struct {
	IdleTimeout  time.Duration
	TotalTimeout time.Duration
}

// DefaultTimeBudget is idle 8s, total 30s.
func DefaultTimeBudget() TimeBudget {
	return TimeBudget{IdleTimeout: 8 * time.Second, TotalTimeout: 30 * time.Second}
}
