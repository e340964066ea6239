package supplier

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
)

// fastFlateDecompressor is registered on each archive reader in place
// of archive/zip's default flate decompressor, using klauspost/compress's
// faster one (package fetches happen once per resolved version per
// machine, but build caches re-extract on every cold cache miss).
func fastFlateDecompressor(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}

// sha256File hashes a file's contents, used both to populate
// PackageHandle.Checksum and to verify a corrupt-archive retry
// decision.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("supplier: opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("supplier: hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// isPathWithinDirectory reports whether targetPath is contained in
// basePath, guarding against zip-slip path traversal.
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// extractZip unpacks the zip archive at archivePath into destDir,
// rejecting any entry whose resolved path would escape destDir.
// Package archives carry regular files and directories only — no
// symlinks — so symlink entries are refused outright instead of
// validated.
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("supplier: opening archive %s: %w", archivePath, err)
	}
	defer r.Close()
	r.RegisterDecompressor(zip.Deflate, fastFlateDecompressor)

	for _, f := range r.File {
		cleanName := strings.TrimPrefix(f.Name, "./")
		target := filepath.Join(destDir, cleanName)
		if !isPathWithinDirectory(target, destDir) {
			return fmt.Errorf("supplier: archive entry %q escapes destination directory", f.Name)
		}

		mode := f.Mode()
		if mode&os.ModeSymlink != 0 {
			return fmt.Errorf("supplier: archive entry %q is a symlink, not supported in package archives", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("supplier: creating directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("supplier: creating parent directory for %s: %w", target, err)
		}

		if err := extractZipEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("supplier: opening archive entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return fmt.Errorf("supplier: creating %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("supplier: writing %s: %w", target, err)
	}
	return nil
}

// validateZip does a structural pass over the archive without
// extracting it, the corrupt-archive check the retry policy needs
// before committing to unpacking a download.
func validateZip(archivePath string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("supplier: archive %s is not a valid zip: %w", archivePath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("supplier: archive %s entry %q is corrupt: %w", archivePath, f.Name, err)
		}
		_, copyErr := io.Copy(io.Discard, rc)
		rc.Close()
		if copyErr != nil {
			return fmt.Errorf("supplier: archive %s entry %q is corrupt: %w", archivePath, f.Name, copyErr)
		}
	}
	return nil
}
