package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lewtec/rotulador-studio/internal/blob"
	"github.com/lewtec/rotulador-studio/internal/browse"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/editor"
	"github.com/lewtec/rotulador-studio/internal/store/memory"
	"github.com/lewtec/rotulador-studio/internal/store/storetest"
)

func setupServer(t *testing.T) (*Server, *memory.Store, []string) {
	t.Helper()
	store := memory.New()
	ids := storetest.Seed(t, store, "p", 3)
	s := New(Config{
		Store:  store,
		Blobs:  blob.NewMemoryStore(),
		Editor: editor.Options{Debounce: time.Hour},
	})
	t.Cleanup(func() { s.Shutdown() })
	return s, store, ids
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
}

func TestHealthAndHelp(t *testing.T) {
	s, _, _ := setupServer(t)

	resp, _ := do(t, s, "GET", "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d", resp.StatusCode)
	}

	resp, body := do(t, s, "GET", "/help", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /help = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<h1>rotulador studio</h1>") {
		t.Errorf("help page not rendered from markdown: %.200s", body)
	}

	resp, body = do(t, s, "GET", "/metrics", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "studio_") {
		t.Errorf("GET /metrics = %d without studio metrics", resp.StatusCode)
	}
}

func TestPortRoutes(t *testing.T) {
	s, _, ids := setupServer(t)

	t.Run("images range and count", func(t *testing.T) {
		resp, body := do(t, s, "GET", "/api/projects/p/images?offset=1&limit=5", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var images []domain.ImageData
		decode(t, body, &images)
		if len(images) != 2 || images[0].ID != ids[1] {
			t.Errorf("range = %+v", images)
		}

		_, body = do(t, s, "GET", "/api/projects/p/images/count", nil)
		var count CountResponse
		decode(t, body, &count)
		if count.Count != 3 {
			t.Errorf("count = %d, want 3", count.Count)
		}
	})

	t.Run("missing image is 404", func(t *testing.T) {
		resp, body := do(t, s, "GET", "/api/images/nope", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
		var e map[string]interface{}
		decode(t, body, &e)
		if e["code"] != CodeNotFound {
			t.Errorf("code = %v, want %s", e["code"], CodeNotFound)
		}
	})

	t.Run("incomplete annotation is 422", func(t *testing.T) {
		a := storetest.Box("a", ids[0], "")
		a.Coordinates = a.Coordinates[:1]
		resp, body := do(t, s, "POST", "/api/annotations", a)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422: %s", resp.StatusCode, body)
		}
	})

	t.Run("label with annotations", func(t *testing.T) {
		resp, _ := do(t, s, "POST", "/api/annotations", storetest.Box("a", ids[0], ""))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create annotation status = %d", resp.StatusCode)
		}
		req := CreateLabelRequest{
			Label:         domain.Label{ID: "cat", ProjectID: "p", Name: "cat", Color: "#fff"},
			AnnotationIDs: []string{"a"},
		}
		resp, _ = do(t, s, "POST", "/api/labels", req)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create label status = %d", resp.StatusCode)
		}
		_, body := do(t, s, "GET", "/api/images/"+ids[0]+"/annotations", nil)
		var anns []domain.Annotation
		decode(t, body, &anns)
		if len(anns) != 1 || anns[0].Label == nil || anns[0].Label.Name != "cat" {
			t.Errorf("annotations = %+v", anns)
		}
	})
}

func TestNavigationRoutes(t *testing.T) {
	s, store, ids := setupServer(t)

	_, body := do(t, s, "GET", "/api/projects/p/images/"+ids[1]+"/next", nil)
	var next NextResponse
	decode(t, body, &next)
	if !next.HasNext || next.ID != ids[2] {
		t.Errorf("next = %+v, want %s", next, ids[2])
	}

	_, body = do(t, s, "GET", "/api/projects/p/images/"+ids[2]+"/next", nil)
	decode(t, body, &next)
	if next.HasNext || next.ID != "" {
		t.Errorf("next at end = %+v", next)
	}

	_, body = do(t, s, "GET", "/api/projects/p/images/"+ids[1]+"/previous", nil)
	var prev PreviousResponse
	decode(t, body, &prev)
	if !prev.HasPrevious || prev.ID != ids[0] {
		t.Errorf("previous = %+v, want %s", prev, ids[0])
	}

	// images created behind the server's back stay invisible until the cache is cleared
	store.CreateImage(context.Background(), domain.ImageData{ID: ids[2] + "-x", ProjectID: "p", Name: "x"})
	_, body = do(t, s, "GET", "/api/projects/p/images/"+ids[2]+"/next", nil)
	decode(t, body, &next)
	if next.HasNext {
		t.Error("cache picked up an image without being cleared")
	}
	resp, _ := do(t, s, "DELETE", "/api/projects/p/cache", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear cache status = %d", resp.StatusCode)
	}
	_, body = do(t, s, "GET", "/api/projects/p/images/"+ids[2]+"/next", nil)
	decode(t, body, &next)
	if !next.HasNext || next.ID != ids[2]+"-x" {
		t.Errorf("next after clear = %+v", next)
	}

	_, body = do(t, s, "GET", "/api/projects/p/page?index=1&size=2", nil)
	var page browse.PageState
	decode(t, body, &page)
	if page.TotalCount != 4 || len(page.Images) != 2 || page.HasNextPage || !page.HasPreviousPage {
		t.Errorf("page = %+v", page)
	}
}

func TestImageBlob(t *testing.T) {
	s, store, ids := setupServer(t)
	ctx := context.Background()

	key := "0011aabb.png"
	if err := s.blobs.Save(ctx, key, []byte("png-bytes"), "image/png"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.UpdateImage(ctx, ids[0], domain.ImageUpdate{Data: &key}); err != nil {
		t.Fatalf("UpdateImage() error = %v", err)
	}

	resp, body := do(t, s, "GET", "/api/images/"+ids[0]+"/blob?project=p", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if string(body) != "png-bytes" || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("blob = %q (%s)", body, resp.Header.Get("Content-Type"))
	}

	resp, _ = do(t, s, "GET", "/api/images/"+ids[1]+"/blob", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("blob of image without payload = %d, want 404", resp.StatusCode)
	}
}

func TestSessionRoutes(t *testing.T) {
	s, store, ids := setupServer(t)
	ctx := context.Background()

	resp, body := do(t, s, "POST", "/api/sessions", OpenSessionRequest{ImageID: ids[0]})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open session status = %d: %s", resp.StatusCode, body)
	}
	var state SessionState
	decode(t, body, &state)
	sid := state.ID
	if sid == "" || state.Image == nil || state.Image.ID != ids[0] {
		t.Fatalf("session state = %+v", state)
	}

	_, body = do(t, s, "POST", "/api/sessions/"+sid+"/annotations", storetest.Box("A", ids[0], ""))
	decode(t, body, &state)
	if len(state.Annotations) != 1 || !state.CanUndo {
		t.Fatalf("after create = %+v", state)
	}

	color := "#00ff00"
	resp, body = do(t, s, "PATCH", "/api/sessions/"+sid+"/annotations/A", domain.AnnotationUpdate{Color: &color})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d: %s", resp.StatusCode, body)
	}
	decode(t, body, &state)
	if state.Annotations[0].Color != color {
		t.Errorf("in-memory color = %s, want %s", state.Annotations[0].Color, color)
	}
	stored, _ := store.GetAnnotations(ctx, ids[0])
	if stored[0].Color == color {
		t.Error("update persisted before the debounce window")
	}

	resp, body = do(t, s, "PATCH", "/api/sessions/"+sid+"/annotations/A", domain.AnnotationUpdate{Coordinates: []domain.Point{{X: 1, Y: 1}}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("incomplete update status = %d, want 422: %s", resp.StatusCode, body)
	}

	_, body = do(t, s, "POST", "/api/sessions/"+sid+"/labels", LabelRequest{Name: "cat", Color: "#fff"})
	decode(t, body, &state)
	if len(state.Labels) != 1 || state.Labels[0].Name != "cat" {
		t.Errorf("labels = %+v", state.Labels)
	}

	_, body = do(t, s, "POST", "/api/sessions/"+sid+"/undo", nil)
	decode(t, body, &state)
	if state.Annotations[0].Color == color || !state.CanRedo {
		t.Errorf("after undo = %+v", state)
	}
	_, body = do(t, s, "POST", "/api/sessions/"+sid+"/redo", nil)
	decode(t, body, &state)
	if state.Annotations[0].Color != color {
		t.Errorf("after redo color = %s", state.Annotations[0].Color)
	}

	resp, _ = do(t, s, "DELETE", "/api/sessions/"+sid, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close status = %d", resp.StatusCode)
	}
	stored, _ = store.GetAnnotations(ctx, ids[0])
	if stored[0].Color != color {
		t.Errorf("stored color after close = %s, want %s", stored[0].Color, color)
	}

	resp, _ = do(t, s, "GET", "/api/sessions/"+sid, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("closed session status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionExpiry(t *testing.T) {
	open := func(t *testing.T, s *Server, imageID string) string {
		t.Helper()
		resp, body := do(t, s, "POST", "/api/sessions", OpenSessionRequest{ImageID: imageID})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("open session status = %d: %s", resp.StatusCode, body)
		}
		var state SessionState
		decode(t, body, &state)
		return state.ID
	}

	t.Run("idle sessions are closed and flushed", func(t *testing.T) {
		store := memory.New()
		ids := storetest.Seed(t, store, "p", 2)
		s := New(Config{
			Store:              store,
			Blobs:              blob.NewMemoryStore(),
			Editor:             editor.Options{Debounce: time.Hour},
			SessionIdleTimeout: 50 * time.Millisecond,
		})
		t.Cleanup(func() { s.Shutdown() })
		ctx := context.Background()

		sid := open(t, s, ids[0])
		do(t, s, "POST", "/api/sessions/"+sid+"/annotations", storetest.Box("A", ids[0], ""))
		color := "#00ff00"
		do(t, s, "PATCH", "/api/sessions/"+sid+"/annotations/A", domain.AnnotationUpdate{Color: &color})

		time.Sleep(100 * time.Millisecond)
		resp, _ := do(t, s, "GET", "/api/sessions/"+sid, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("idle session status = %d, want 404", resp.StatusCode)
		}
		stored, _ := store.GetAnnotations(ctx, ids[0])
		if len(stored) != 1 || stored[0].Color != color {
			t.Errorf("stored annotations = %+v, want the pending color", stored)
		}

		other := open(t, s, ids[1])
		time.Sleep(100 * time.Millisecond)
		open(t, s, ids[1])
		if n := s.SessionCount(); n != 1 {
			t.Errorf("SessionCount() = %d, want the idle session %s swept on open", n, other)
		}
	})

	t.Run("cap evicts the least recently used", func(t *testing.T) {
		store := memory.New()
		ids := storetest.Seed(t, store, "p", 1)
		s := New(Config{
			Store:       store,
			Blobs:       blob.NewMemoryStore(),
			Editor:      editor.Options{Debounce: time.Hour},
			MaxSessions: 2,
		})
		t.Cleanup(func() { s.Shutdown() })

		first := open(t, s, ids[0])
		time.Sleep(5 * time.Millisecond)
		second := open(t, s, ids[0])
		time.Sleep(5 * time.Millisecond)
		do(t, s, "GET", "/api/sessions/"+first, nil)
		time.Sleep(5 * time.Millisecond)
		third := open(t, s, ids[0])

		if n := s.SessionCount(); n != 2 {
			t.Errorf("SessionCount() = %d, want 2", n)
		}
		for sid, want := range map[string]int{first: http.StatusOK, second: http.StatusNotFound, third: http.StatusOK} {
			if resp, _ := do(t, s, "GET", "/api/sessions/"+sid, nil); resp.StatusCode != want {
				t.Errorf("session %s status = %d, want %d", sid, resp.StatusCode, want)
			}
		}
	})
}

func TestTaskAndSettingRoutes(t *testing.T) {
	s, _, _ := setupServer(t)

	due := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	resp, body := do(t, s, "PUT", "/api/tasks/t1", domain.Task{ProjectID: "p", Name: "boxes", AssignedTo: "ana", DueDate: &due})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save task status = %d: %s", resp.StatusCode, body)
	}
	var task domain.Task
	decode(t, body, &task)
	if task.ID != "t1" || task.Status != domain.TaskPending || task.CreatedAt.IsZero() {
		t.Errorf("saved task = %+v", task)
	}

	resp, body = do(t, s, "PUT", "/api/tasks/t1", domain.Task{ProjectID: "p", Name: "boxes", Status: domain.TaskCompleted})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update task status = %d: %s", resp.StatusCode, body)
	}
	var tasks []domain.Task
	_, body = do(t, s, "GET", "/api/projects/p/tasks", nil)
	decode(t, body, &tasks)
	if len(tasks) != 1 || tasks[0].Status != domain.TaskCompleted || tasks[0].DueDate != nil {
		t.Errorf("GET tasks = %+v", tasks)
	}

	resp, body = do(t, s, "PUT", "/api/tasks/t2", domain.Task{ProjectID: "p", Status: "finished"})
	if resp.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(string(body), CodeTaskStatus) {
		t.Errorf("bad status = %d: %s", resp.StatusCode, body)
	}
	resp, _ = do(t, s, "PUT", "/api/tasks/t3", domain.Task{ProjectID: "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("task of missing project status = %d, want 404", resp.StatusCode)
	}

	resp, _ = do(t, s, "DELETE", "/api/tasks/t1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete task status = %d", resp.StatusCode)
	}
	resp, _ = do(t, s, "GET", "/api/tasks/t1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted task status = %d, want 404", resp.StatusCode)
	}

	resp, body = do(t, s, "PUT", "/api/projects/p/settings/theme", SettingRequest{Value: "dark"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save setting status = %d: %s", resp.StatusCode, body)
	}
	do(t, s, "PUT", "/api/projects/p/settings/theme", SettingRequest{Value: "light"})
	var settings []domain.Setting
	_, body = do(t, s, "GET", "/api/projects/p/settings", nil)
	decode(t, body, &settings)
	if len(settings) != 1 || settings[0].Key != "theme" || settings[0].Value != "light" {
		t.Errorf("GET settings = %+v", settings)
	}
	resp, _ = do(t, s, "DELETE", "/api/projects/p/settings/theme", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete setting status = %d", resp.StatusCode)
	}
	resp, _ = do(t, s, "DELETE", "/api/projects/p/settings/theme", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete missing setting status = %d, want 404", resp.StatusCode)
	}
}
