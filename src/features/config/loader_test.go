package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, dir string, yaml string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	if err := os.Mkdir(source, 0755); err != nil {
		t.Fatal(err)
	}
	path := writeConfigFile(t, dir, `
sourcePath: `+source+`
destinationPath: `+filepath.Join(dir, "dest")+`
rename:
  format: "%Y/%m/custom.%%e"
  delete_duplicates: false
  locale: en_US.utf8
  exiftool_path: exiftool
  workers: 2
watcher:
  quiet_period_seconds: 30
  recheck_seconds: 5
`)

	t.Setenv("FORMAT", DefaultDestinationFormat)
	t.Setenv("DELETE_DUPLICATE", "true")
	t.Setenv("LOCALE", "zh_CN.utf8")

	manager, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := manager.Get()
	if cfg.Rename.Format != DefaultDestinationFormat {
		t.Errorf("FORMAT override not applied, got %q", cfg.Rename.Format)
	}
	if !cfg.Rename.DeleteDuplicates {
		t.Error("DELETE_DUPLICATE override not applied")
	}
	if cfg.Rename.Locale != "zh_CN.utf8" {
		t.Errorf("LOCALE override not applied, got %q", cfg.Rename.Locale)
	}
	if cfg.Rename.Workers != 2 {
		t.Errorf("expected workers from file, got %d", cfg.Rename.Workers)
	}
}

func TestLoad_UnparseableDeleteDuplicateKeepsFileValue(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	if err := os.Mkdir(source, 0755); err != nil {
		t.Fatal(err)
	}
	path := writeConfigFile(t, dir, `
sourcePath: `+source+`
destinationPath: `+filepath.Join(dir, "dest")+`
rename:
  delete_duplicates: true
  workers: 1
watcher:
  quiet_period_seconds: 30
  recheck_seconds: 5
`)

	t.Setenv("DELETE_DUPLICATE", "not-a-bool")

	manager, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !manager.Get().Rename.DeleteDuplicates {
		t.Error("file value should survive an unparseable override")
	}
}

func TestLoad_MissingSourceDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
sourcePath: `+filepath.Join(dir, "does-not-exist")+`
destinationPath: `+filepath.Join(dir, "dest")+`
rename:
  workers: 1
watcher:
  quiet_period_seconds: 30
  recheck_seconds: 5
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unreadable source directory")
	}
}

func TestManager_RedactsTelegramToken(t *testing.T) {
	cfg := createDefaultConfig()
	cfg.Telegram.Token = "secret-token"
	manager := NewManager(cfg)

	if got := manager.GetJSON(); !strings.Contains(got, "<redacted>") || strings.Contains(got, "secret-token") {
		t.Errorf("token not redacted in JSON dump: %s", got)
	}
}
