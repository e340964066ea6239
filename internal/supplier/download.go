package supplier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// httpDownloadTo streams url's body into a fresh temp file under
// destDir, the shape both RegistrySupplier.Fetch and MirrorSupplier.Fetch
// share: a stable User-Agent header, rejection of unexpected response
// encodings, and status classification before committing to a write.
func httpDownloadTo(ctx context.Context, client *http.Client, supplierName, pkg, url, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{Kind: ErrValidation, Supplier: supplierName, Package: pkg, Message: "building request", Cause: err}
	}
	req.Header.Set("User-Agent", "dub-package-manager")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := client.Do(req)
	if err != nil {
		return "", wrapTransportError(supplierName, pkg, "download failed", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(supplierName, pkg, resp.StatusCode); err != nil {
		return "", err
	}

	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" && encoding != "identity" {
		return "", &Error{Kind: ErrValidation, Supplier: supplierName, Package: pkg, Message: fmt.Sprintf("unexpected content-encoding %q", encoding)}
	}

	if err := ensureDir(destDir); err != nil {
		return "", &Error{Kind: ErrConnection, Supplier: supplierName, Package: pkg, Message: "creating download directory", Cause: err}
	}

	tmp, err := os.CreateTemp(destDir, ".fetch-*.zip")
	if err != nil {
		return "", &Error{Kind: ErrConnection, Supplier: supplierName, Package: pkg, Message: "creating temp file", Cause: err}
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", &Error{Kind: ErrConnection, Supplier: supplierName, Package: pkg, Message: "writing download", Cause: err}
	}
	return tmp.Name(), nil
}

func (s *RegistrySupplier) downloadToTemp(ctx context.Context, name, url, destDir string) (string, error) {
	return httpDownloadTo(ctx, s.client, s.String(), name, url, destDir)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func removeIfExists(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
