package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// executeCommand is a helper to run a cobra command and capture its output
func executeCommand(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	log.SetOutput(&errOut)
	defer log.SetOutput(os.Stderr)

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// setupProject initializes a studio folder and returns its config path
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, errOut, err := executeCommand("init", dir); err != nil {
		t.Fatalf("init failed: %v, output: %s", err, errOut)
	}
	return filepath.Join(dir, "studio.yaml")
}

func writeImages(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		f, err := os.Create(filepath.Join(dir, string(rune('a'+i))+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewGray(image.Rect(0, 0, i+1, i+1))); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	return dir
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestInitCmd(t *testing.T) {
	t.Run("creates config, database and blob folder", func(t *testing.T) {
		dir := t.TempDir()
		_, errOut, err := executeCommand("init", dir)
		if err != nil {
			t.Fatalf("command execution failed: %v, output: %s", err, errOut)
		}
		for _, name := range []string{"studio.yaml", "studio.db", "blobs"} {
			if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
				t.Errorf("expected %s to be created", name)
			}
		}
		if !strings.Contains(errOut, "Creating default config") {
			t.Errorf("expected log output to contain 'Creating default config', but got: %s", errOut)
		}
	})

	t.Run("keeps an existing config", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "studio.yaml")
		os.WriteFile(configPath, []byte("storage:\n  backend: memory\n"), 0644)

		out, errOut, err := executeCommand("init", dir)
		if err != nil {
			t.Fatalf("command execution failed: %v, output: %s", err, errOut)
		}
		if !strings.Contains(errOut, "Config file already exists") {
			t.Errorf("expected log output to contain 'Config file already exists', but got: %s", errOut)
		}
		if !strings.Contains(out, "Initialized memory storage") {
			t.Errorf("unexpected output: %s", out)
		}
	})
}

func TestMigrateCmd(t *testing.T) {
	config := setupProject(t)

	out, errOut, err := executeCommand("-c", config, "migrate", "version")
	if err != nil {
		t.Fatalf("migrate version failed: %v, output: %s", err, errOut)
	}
	if !strings.Contains(out, "version\t2") {
		t.Errorf("migrate version = %q, want version 2", out)
	}

	out, _, err = executeCommand("-c", config, "migrate", "down")
	if err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
	if !strings.Contains(out, "version\t0") {
		t.Errorf("migrate down = %q, want version 0", out)
	}

	out, _, err = executeCommand("-c", config, "migrate", "up")
	if err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}
	if !strings.Contains(out, "version\t2") {
		t.Errorf("migrate up = %q, want version 2", out)
	}

	if _, _, err := executeCommand("-c", config, "migrate", "sideways"); err == nil {
		t.Error("unknown migrate action should fail")
	}
}

func TestIngestQueryBrowse(t *testing.T) {
	config := setupProject(t)
	images := writeImages(t, 3)

	out, errOut, err := executeCommand("-c", config, "ingest", "--project", "p", "--jobs", "2", images)
	if err != nil {
		t.Fatalf("ingest failed: %v, output: %s", err, errOut)
	}
	ingested := lines(out)
	if len(ingested) != 3 {
		t.Fatalf("ingest printed %d images, want 3: %q", len(ingested), out)
	}
	firstID := strings.Split(ingested[0], "\t")[0]
	secondID := strings.Split(ingested[1], "\t")[0]

	t.Run("query lists projects and images", func(t *testing.T) {
		out, _, err := executeCommand("-c", config, "query")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if strings.TrimSpace(out) != "p\tp" {
			t.Errorf("query = %q, want the project p", out)
		}

		out, _, err = executeCommand("-c", config, "query", "p")
		if err != nil {
			t.Fatalf("query p failed: %v", err)
		}
		rows := lines(out)
		if len(rows) != 3 || !strings.HasPrefix(rows[0], firstID+"\ta.png\t1x1") {
			t.Errorf("query p = %q", out)
		}

		out, _, err = executeCommand("-c", config, "query", "p", firstID)
		if err != nil {
			t.Fatalf("query p image failed: %v", err)
		}
		if strings.TrimSpace(out) != "" {
			t.Errorf("query p image = %q, want no annotations", out)
		}

		if _, _, err := executeCommand("-c", config, "query", "p", "missing"); err == nil {
			t.Error("query of a missing image should fail")
		}
	})

	t.Run("browse navigates in ingest order", func(t *testing.T) {
		out, _, err := executeCommand("-c", config, "browse", "next", "p")
		if err != nil {
			t.Fatalf("browse next failed: %v", err)
		}
		if strings.TrimSpace(out) != firstID {
			t.Errorf("browse next = %q, want %s", out, firstID)
		}

		out, _, err = executeCommand("-c", config, "browse", "next", "p", firstID)
		if err != nil {
			t.Fatalf("browse next failed: %v", err)
		}
		if strings.TrimSpace(out) != secondID {
			t.Errorf("browse next = %q, want %s", out, secondID)
		}

		out, _, err = executeCommand("-c", config, "browse", "previous", "p", secondID)
		if err != nil {
			t.Fatalf("browse previous failed: %v", err)
		}
		if strings.TrimSpace(out) != firstID {
			t.Errorf("browse previous = %q, want %s", out, firstID)
		}

		if _, _, err := executeCommand("-c", config, "browse", "previous", "p", firstID); err == nil {
			t.Error("browse previous of the first image should fail")
		}
	})

	t.Run("browse page", func(t *testing.T) {
		out, _, err := executeCommand("-c", config, "browse", "page", "p", "--page", "1", "--size", "2")
		if err != nil {
			t.Fatalf("browse page failed: %v", err)
		}
		rows := lines(out)
		if len(rows) != 2 || rows[1] != "page 2 of 2 (3 images)" {
			t.Errorf("browse page = %q", out)
		}
	})
}

func TestLabelEnsure(t *testing.T) {
	config := setupProject(t)

	first, _, err := executeCommand("-c", config, "label", "ensure", "p", "cat", "--color", "#fff")
	if err != nil {
		t.Fatalf("label ensure failed: %v", err)
	}
	second, _, err := executeCommand("-c", config, "label", "ensure", "p", "cat", "--color", "#000")
	if err != nil {
		t.Fatalf("label ensure failed: %v", err)
	}
	if first != second {
		t.Errorf("label ensure is not idempotent: %q != %q", first, second)
	}

	out, _, err := executeCommand("-c", config, "label", "list", "p")
	if err != nil {
		t.Fatalf("label list failed: %v", err)
	}
	if len(lines(out)) != 1 {
		t.Errorf("label list = %q, want one label", out)
	}
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	_, _, err := executeCommand("-c", "/path/to/some/nonexistent/studio.yaml", "query")
	if err == nil {
		t.Fatal("expected an error for invalid config path, but got none")
	}
	if !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("expected error to be about loading config, but got: %v", err)
	}
}

func TestTaskCmd(t *testing.T) {
	config := setupProject(t)
	if _, errOut, err := executeCommand("-c", config, "ingest", "--project", "p", writeImages(t, 1)); err != nil {
		t.Fatalf("ingest failed: %v, output: %s", err, errOut)
	}

	if _, _, err := executeCommand("-c", config, "task", "add", "missing", "boxes"); err == nil {
		t.Error("task add on a missing project should fail")
	}

	out, errOut, err := executeCommand("-c", config, "task", "add", "p", "boxes", "--assign", "ana", "--due", "2026-11-01")
	if err != nil {
		t.Fatalf("task add failed: %v, output: %s", err, errOut)
	}
	id := strings.TrimSpace(out)

	if _, _, err := executeCommand("-c", config, "task", "status", id, "review"); err != nil {
		t.Fatalf("task status failed: %v", err)
	}
	if _, _, err := executeCommand("-c", config, "task", "status", id, "done"); err == nil {
		t.Error("task status with an unknown status should fail")
	}

	out, _, err = executeCommand("-c", config, "task", "list", "p")
	if err != nil {
		t.Fatalf("task list failed: %v", err)
	}
	if want := id + "\tboxes\treview\tana\t2026-11-01"; strings.TrimSpace(out) != want {
		t.Errorf("task list = %q, want %q", out, want)
	}
}
