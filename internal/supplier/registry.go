package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dub-go/dub/internal/httputil"
	"github.com/dub-go/dub/internal/log"
	"github.com/dub-go/dub/internal/semver"
)

// registryMetadata is the JSON document a registry serves at
// "<registry>/packages/<name>.json".
type registryMetadata struct {
	Versions []registryVersionEntry `json:"versions"`
}

type registryVersionEntry struct {
	Version string `json:"version"`
	Size    int64  `json:"size"`
}

// RegistrySupplier fetches package metadata and archives over HTTP
// from one or more registry base URLs (space-separated fallbacks),
// through internal/httputil's SSRF-hardened client.
type RegistrySupplier struct {
	BaseURLs []string
	client   *http.Client
	budget   TimeBudget
	logger   log.Logger

	mu    sync.Mutex // single-writer discipline over cache
	cache map[string][]VersionInfo
}

// NewRegistrySupplier builds a supplier against baseURLs (tried in
// order on retry), using the default time budget
// unless overridden by the caller via RegistrySupplier.budget.
func NewRegistrySupplier(baseURLs []string) *RegistrySupplier {
	budget := DefaultTimeBudget()
	return &RegistrySupplier{
		BaseURLs: baseURLs,
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

func (s *RegistrySupplier) String() string {
	if len(s.BaseURLs) == 0 {
		return "registry(unconfigured)"
	}
	return fmt.Sprintf("registry(%s)", s.BaseURLs[0])
}

// Describe returns the known versions of name, consulting the
// in-process cache first. A cache hit never touches the network.
func (s *RegistrySupplier) Describe(ctx context.Context, name string) ([]VersionInfo, error) {
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		s.mu.Unlock()
		s.logger.Debug("registry metadata cache hit", "package", name)
		return cached, nil
	}
	s.mu.Unlock()

	var versions []VersionInfo
	err := withRetry(ctx, func(attempt int) error {
		base := fallbackURLs(s.BaseURLs, attempt)
		if base == "" {
			return &Error{Kind: ErrValidation, Supplier: s.String(), Package: name, Message: "no registry URL configured"}
		}
		if attempt > 1 {
			s.logger.Warn("retrying registry metadata fetch", "package", name, "attempt", attempt, "base", base)
		}

		url := fmt.Sprintf("%s/packages/%s.json", strings.TrimSuffix(base, "/"), name)
		data, fetchErr := s.getBytes(ctx, name, url)
		if fetchErr != nil {
			return fetchErr
		}

		var meta registryMetadata
		if jsonErr := json.Unmarshal(data, &meta); jsonErr != nil {
			return &Error{Kind: ErrCorruptArchive, Supplier: s.String(), Package: name, Message: "metadata is not valid JSON", Cause: jsonErr}
		}

		parsed := make([]VersionInfo, 0, len(meta.Versions))
		for _, v := range meta.Versions {
			ver, parseErr := semver.ParseVersion(v.Version)
			if parseErr != nil {
				continue
			}
			parsed = append(parsed, VersionInfo{Version: ver, ArchiveSize: v.Size})
		}
		versions = parsed
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

// Fetch downloads "<registry>/packages/<name>/<version>.zip" and
// unpacks it into destDir, retrying corrupt archives and 5xx responses
// rotating through BaseURLs on each retry.
func (s *RegistrySupplier) Fetch(ctx context.Context, name string, version semver.Version, destDir string) (PackageHandle, error) {
	var handle PackageHandle
	err := withRetry(ctx, func(attempt int) error {
		base := fallbackURLs(s.BaseURLs, attempt)
		if base == "" {
			return &Error{Kind: ErrValidation, Supplier: s.String(), Package: name, Message: "no registry URL configured"}
		}

		url := fmt.Sprintf("%s/packages/%s/%s.zip", strings.TrimSuffix(base, "/"), name, version.String())
		s.logger.Debug("fetching package archive", "package", name, "version", version.String(), "url", url)
		archivePath, fetchErr := s.downloadToTemp(ctx, name, url, destDir)
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

// getBytes performs a single GET, classifying the response status into
// a supplier Error (including whether it's retryable) before the
// caller decides what to do with it.
func (s *RegistrySupplier) getBytes(ctx context.Context, name, url string) ([]byte, error) {
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

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrConnection, Supplier: s.String(), Package: name, Message: "reading response body", Cause: err}
	}
	return data, nil
}

func classifyStatus(supplierName, pkg string, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return &Error{Kind: ErrNotFound, Supplier: supplierName, Package: pkg, Message: "not found"}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: ErrRateLimit, Supplier: supplierName, Package: pkg, Message: "rate limited"}
	case status >= 500:
		return &Error{Kind: ErrServerError, Supplier: supplierName, Package: pkg, Message: fmt.Sprintf("server error %d", status)}
	default:
		return &Error{Kind: ErrValidation, Supplier: supplierName, Package: pkg, Message: fmt.Sprintf("unexpected status %d", status)}
	}
}
