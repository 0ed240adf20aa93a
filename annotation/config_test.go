package annotation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lewtec/rotulador-studio/internal/labels"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studio.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "meta:\n  description: test\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	dir := filepath.Dir(path)

	if cfg.Meta.Description != "test" {
		t.Errorf("Description = %q, want test", cfg.Meta.Description)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.SQLite != filepath.Join(dir, "studio.db") {
		t.Errorf("Storage = %+v, want sqlite next to the config", cfg.Storage)
	}
	if cfg.Blobs.Backend != "filesystem" || cfg.Blobs.Dir != filepath.Join(dir, "blobs") {
		t.Errorf("Blobs = %+v, want filesystem next to the config", cfg.Blobs)
	}
	if cfg.Editor.MaxHistory != 100 || cfg.Editor.Debounce != 300*time.Millisecond {
		t.Errorf("Editor = %+v, want 100 entries and 300ms", cfg.Editor)
	}
	if cfg.MatchMode() != labels.MatchName {
		t.Errorf("MatchMode() = %v, want name", cfg.MatchMode())
	}
	if cfg.Browse.PrefetchWindow != 10 || cfg.Browse.PageSize != 20 || cfg.Browse.Cache != "memory" {
		t.Errorf("Browse = %+v", cfg.Browse)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
editor:
  max_history: 5
  debounce: 1s
  label_match: name+color
browse:
  prefetch_window: 3
  cache: redis
server:
  addr: ":9000"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Editor.MaxHistory != 5 || cfg.Editor.Debounce != time.Second {
		t.Errorf("Editor = %+v", cfg.Editor)
	}
	if cfg.MatchMode() != labels.MatchNameAndColor {
		t.Errorf("MatchMode() = %v, want name+color", cfg.MatchMode())
	}
	if cfg.Browse.PrefetchWindow != 3 || cfg.Browse.Redis.Addr != "localhost:6379" {
		t.Errorf("Browse = %+v", cfg.Browse)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "editor:\n  debounce: 1s\n")
	t.Setenv("STUDIO_STORAGE_BACKEND", "memory")
	t.Setenv("STUDIO_DEBOUNCE", "50ms")
	t.Setenv("STUDIO_PAGE_SIZE", "7")
	t.Setenv("STUDIO_ADDR", ":7000")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Editor.Debounce != 50*time.Millisecond {
		t.Errorf("Debounce = %v, want 50ms", cfg.Editor.Debounce)
	}
	if cfg.Browse.PageSize != 7 {
		t.Errorf("PageSize = %d, want 7", cfg.Browse.PageSize)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q, want :7000", cfg.Server.Addr)
	}

	t.Setenv("STUDIO_PAGE_SIZE", "seven")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "STUDIO_PAGE_SIZE") {
		t.Errorf("LoadConfig() with bad int error = %v", err)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	path := writeConfig(t, "")
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envFile, []byte("STUDIO_PREFETCH_WINDOW=4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("STUDIO_PREFETCH_WINDOW") })

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Browse.PrefetchWindow != 4 {
		t.Errorf("PrefetchWindow = %d, want 4 from .env", cfg.Browse.PrefetchWindow)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown storage", "storage:\n  backend: mongo\n", "unknown backend"},
		{"postgres without dsn", "storage:\n  backend: postgres\n", "dsn"},
		{"rest without url", "storage:\n  backend: rest\n", "url"},
		{"minio without bucket", "blobs:\n  backend: minio\n", "bucket"},
		{"bad label match", "editor:\n  label_match: color\n", "editor"},
		{"unknown cache", "browse:\n  cache: disk\n", "unknown cache"},
		{"bad yaml", "storage: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() of a missing file should fail")
	}
}

func TestWriteSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	if err := WriteSampleConfig(path); err != nil {
		t.Fatalf("WriteSampleConfig() error = %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Editor.Debounce != 300*time.Millisecond {
		t.Errorf("sample config = %+v", cfg)
	}
}
