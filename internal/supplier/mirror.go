package supplier

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/dub-go/dub/internal/httputil"
	"github.com/dub-go/dub/internal/log"
	"github.com/dub-go/dub/internal/semver"
)

// MirrorSupplier reads a Maven-style layout:
// "<base>/<path>/<name>/<version>/<name>-<version>.zip", discovering
// versions via an HTML directory listing rather than a metadata
// endpoint. Grounded on the same
// hardened-client conventions as RegistrySupplier; the two differ only
// in how they discover and address versions.
type MirrorSupplier struct {
	BaseURLs []string
	PathTmpl string // e.g. "archive/org/example"; "<name>" substituted at call time
	client   *http.Client
	budget   TimeBudget
	logger   log.Logger

	mu    sync.Mutex
	cache map[string][]VersionInfo
}

// NewMirrorSupplier builds a supplier against baseURLs, listing
// packages under pathTmpl/<name>/.
func NewMirrorSupplier(baseURLs []string, pathTmpl string) *MirrorSupplier {
	budget := DefaultTimeBudget()
	return &MirrorSupplier{
		BaseURLs: baseURLs,
		PathTmpl: pathTmpl,
		budget:   budget,
		client: httputil.NewSecureClient(httputil.ClientOptions{
			Timeout:               budget.TotalTimeout,
			ResponseHeaderTimeout: budget.IdleTimeout,
			RegistryURLs:          baseURLs,
		}),
		cache:  make(map[string][]VersionInfo),
		logger: log.Default(),
	}
}

func (s *MirrorSupplier) String() string {
	if len(s.BaseURLs) == 0 {
		return "mirror(unconfigured)"
	}
	return fmt.Sprintf("mirror(%s)", s.BaseURLs[0])
}

var dirListingEntry = regexp.MustCompile(`href="([^"/?]+)/?"`)

func (s *MirrorSupplier) packageBase(base, name string) string {
	prefix := strings.TrimSuffix(base, "/")
	if s.PathTmpl != "" {
		prefix = prefix + "/" + strings.Trim(s.PathTmpl, "/")
	}
	return prefix + "/" + name
}

// Describe lists versions by parsing the HTML directory index at
// "<base>/<path>/<name>/".
func (s *MirrorSupplier) Describe(ctx context.Context, name string) ([]VersionInfo, error) {
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	var versions []VersionInfo
	err := withRetry(ctx, func(attempt int) error {
		base := fallbackURLs(s.BaseURLs, attempt)
		if base == "" {
			return &Error{Kind: ErrValidation, Supplier: s.String(), Package: name, Message: "no mirror URL configured"}
		}
		url := s.packageBase(base, name) + "/"
		s.logger.Debug("listing mirror directory", "package", name, "url", url)
		data, fetchErr := s.getBytes(ctx, name, url)
		if fetchErr != nil {
			return fetchErr
		}
		versions = parseDirectoryListing(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[name] = versions
	s.mu.Unlock()
	return versions, nil
}

func parseDirectoryListing(data []byte) []VersionInfo {
	var versions []VersionInfo
	for _, m := range dirListingEntry.FindAllSubmatch(data, -1) {
		v, err := semver.ParseVersion(string(m[1]))
		if err != nil {
			continue
		}
		versions = append(versions, VersionInfo{Version: v})
	}
	return versions
}

func (s *MirrorSupplier) getBytes(ctx context.Context, name, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: ErrValidation, Supplier: s.String(), Package: name, Message: "building request", Cause: err}
	}
	req.Header.Set("Accept-Encoding", "identity")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, wrapTransportError(s.String(), name, "request failed", err)
	}
	defer resp.Body.Close()
	if err := classifyStatus(s.String(), name, resp.StatusCode); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if readErr != nil {
			break
		}
	}
	return buf, nil
}

// Fetch downloads "<base>/<path>/<name>/<version>/<name>-<version>.zip".
func (s *MirrorSupplier) Fetch(ctx context.Context, name string, version semver.Version, destDir string) (PackageHandle, error) {
	var handle PackageHandle
	err := withRetry(ctx, func(attempt int) error {
		base := fallbackURLs(s.BaseURLs, attempt)
		if base == "" {
			return &Error{Kind: ErrValidation, Supplier: s.String(), Package: name, Message: "no mirror URL configured"}
		}
		url := fmt.Sprintf("%s/%s/%s-%s.zip", s.packageBase(base, name), version.String(), name, version.String())
		s.logger.Debug("fetching package archive", "package", name, "version", version.String(), "url", url)
		archivePath, fetchErr := httpDownloadTo(ctx, s.client, s.String(), name, url, destDir)
		if fetchErr != nil {
			return fetchErr
		}
		defer removeIfExists(archivePath)

		if validateErr := validateZip(archivePath); validateErr != nil {
			return &Error{Kind: ErrCorruptArchive, Supplier: s.String(), Package: name, Message: "archive failed validation", Cause: validateErr}
		}
		checksum, hashErr := sha256File(archivePath)
		if hashErr != nil {
			return &Error{Kind: ErrConnection, Supplier: s.String(), Package: name, Message: "hashing archive", Cause: hashErr}
		}
		unpackDir := filepath.Join(destDir, fmt.Sprintf("%s-%s", name, version.String()))
		if mkErr := ensureDir(unpackDir); mkErr != nil {
			return &Error{Kind: ErrConnection, Supplier: s.String(), Package: name, Message: "creating unpack directory", Cause: mkErr}
		}
		if extractErr := extractZip(archivePath, unpackDir); extractErr != nil {
			return &Error{Kind: ErrCorruptArchive, Supplier: s.String(), Package: name, Message: "extracting archive", Cause: extractErr}
		}
		handle = PackageHandle{Dir: unpackDir, Version: version, Checksum: checksum}
		return nil
	})
	if err != nil {
		return PackageHandle{}, err
	}
	return handle, nil
}
