package selections

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dub-go/dub/internal/configdoc"
)

func TestLoadSettings_LayersAdditiveAndScalarOverride(t *testing.T) {
	origSystem := SystemSettingsFile
	defer func() { SystemSettingsFile = origSystem }()
	SystemSettingsFile = filepath.Join(t.TempDir(), "nonexistent.json")

	userDir := t.TempDir()
	userFile := filepath.Join(userDir, "settings.json")
	writeFile(t, userFile, `{
		"registryUrls": ["https://user.example.com"],
		"defaultCompiler": "dmd"
	}`)

	projectDir := t.TempDir()
	writeFile(t, filepath.Join(projectDir, "settings.json"), `{
		"registryUrls": ["https://project.example.com"],
		"defaultArch": "x86_64"
	}`)
	writeFile(t, filepath.Join(projectDir, ".dub", "local.toml"), `
registry_urls = ["https://local-mirror.example.com"]
`)

	transient := Settings{DefaultCompiler: configdoc.Set("ldc2")}

	merged, err := LoadSettings(userFile, projectDir, transient)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if len(merged.RegistryURLs) != 3 {
		t.Fatalf("RegistryURLs = %v, want 3 entries", merged.RegistryURLs)
	}
	if got := merged.DefaultCompiler.Get(""); got != "ldc2" {
		t.Errorf("DefaultCompiler = %q, want transient layer's %q to win", got, "ldc2")
	}
	if got := merged.DefaultArch.Get(""); got != "x86_64" {
		t.Errorf("DefaultArch = %q, want %q from project layer", got, "x86_64")
	}
}

func TestLoadSettings_NoProjectContext(t *testing.T) {
	origSystem := SystemSettingsFile
	defer func() { SystemSettingsFile = origSystem }()
	SystemSettingsFile = filepath.Join(t.TempDir(), "nonexistent.json")

	merged, err := LoadSettings("", "", Settings{})
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if len(merged.RegistryURLs) != 0 {
		t.Errorf("RegistryURLs = %v, want empty", merged.RegistryURLs)
	}
}

func TestLoadLocalToml_Missing(t *testing.T) {
	s, err := loadLocalToml(filepath.Join(t.TempDir(), "local.toml"))
	if err != nil {
		t.Fatalf("loadLocalToml() error = %v", err)
	}
	if len(s.RegistryURLs) != 0 {
		t.Errorf("RegistryURLs = %v, want empty for missing file", s.RegistryURLs)
	}
}

func TestLoadSettingsFile_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSettingsFile(path); err == nil {
		t.Error("loadSettingsFile() error = nil, want error for invalid JSON")
	}
}
