// Package storetest runs the same behavioural checks against every
// domain.Store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) domain.Store

// Seed creates a project with n images named img-00..img-n and returns their IDs
func Seed(t *testing.T, s domain.Store, projectID string, n int) []string {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.CreateProject(ctx, domain.Project{ID: projectID, Name: projectID, CreatedAt: now, LastModified: now}); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("%s-img-%02d", projectID, i)
		err := s.CreateImage(ctx, domain.ImageData{
			ID:        ids[i],
			ProjectID: projectID,
			Name:      fmt.Sprintf("img-%02d.png", i),
			Data:      "data",
			Width:     640,
			Height:    480,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("failed to create image: %v", err)
		}
	}
	return ids
}

// Box returns a complete box annotation for an image
func Box(id, imageID, labelID string) domain.Annotation {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.Annotation{
		ID:          id,
		ImageID:     imageID,
		LabelID:     labelID,
		Name:        id,
		Type:        domain.ShapeBox,
		Coordinates: []domain.Point{{X: 1, Y: 2}, {X: 30, Y: 40}},
		Color:       "#ff0000",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Run exercises the whole persistence port
func Run(t *testing.T, newStore Factory) {
	t.Run("projects", func(t *testing.T) { testProjects(t, newStore(t)) })
	t.Run("images", func(t *testing.T) { testImages(t, newStore(t)) })
	t.Run("labels", func(t *testing.T) { testLabels(t, newStore(t)) })
	t.Run("annotations", func(t *testing.T) { testAnnotations(t, newStore(t)) })
	t.Run("tasks", func(t *testing.T) { testTasks(t, newStore(t)) })
	t.Run("settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("cascade", func(t *testing.T) { testCascade(t, newStore(t)) })
}

func testProjects(t *testing.T, s domain.Store) {
	ctx := context.Background()
	Seed(t, s, "p1", 0)
	Seed(t, s, "p2", 0)

	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("ListProjects() = %d projects, want 2", len(projects))
	}

	name := "renamed"
	if err := s.UpdateProject(ctx, "p1", domain.ProjectUpdate{Name: &name}); err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}
	p, err := s.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if p == nil || p.Name != "renamed" {
		t.Errorf("GetProject() = %+v, want name renamed", p)
	}

	missing, err := s.GetProject(ctx, "nope")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for non-existent project")
	}
	if err := s.UpdateProject(ctx, "nope", domain.ProjectUpdate{Name: &name}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateProject() on missing project error = %v, want ErrNotFound", err)
	}
}

func testImages(t *testing.T, s domain.Store) {
	ctx := context.Background()
	ids := Seed(t, s, "p", 5)
	Seed(t, s, "other", 2)

	all, err := s.FetchImageDataByProjectID(ctx, "p")
	if err != nil {
		t.Fatalf("FetchImageDataByProjectID() error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("FetchImageDataByProjectID() = %d images, want 5", len(all))
	}
	for i, img := range all {
		if img.ID != ids[i] {
			t.Errorf("image %d = %s, want %s (ordered by id)", i, img.ID, ids[i])
		}
	}

	window, err := s.FetchImageDataRange(ctx, "p", 1, 2)
	if err != nil {
		t.Fatalf("FetchImageDataRange() error = %v", err)
	}
	if len(window) != 2 || window[0].ID != ids[1] || window[1].ID != ids[2] {
		t.Errorf("FetchImageDataRange(1, 2) = %v, want [%s %s]", imageIDs(window), ids[1], ids[2])
	}

	tail, err := s.FetchImageDataRange(ctx, "p", 4, 10)
	if err != nil {
		t.Fatalf("FetchImageDataRange() error = %v", err)
	}
	if len(tail) != 1 {
		t.Errorf("FetchImageDataRange(4, 10) = %d images, want 1", len(tail))
	}

	count, err := s.FetchImagesCount(ctx, "p")
	if err != nil {
		t.Fatalf("FetchImagesCount() error = %v", err)
	}
	if count != 5 {
		t.Errorf("FetchImagesCount() = %d, want 5", count)
	}

	name := "renamed.png"
	if err := s.UpdateImage(ctx, ids[0], domain.ImageUpdate{Name: &name}); err != nil {
		t.Fatalf("UpdateImage() error = %v", err)
	}
	img, err := s.GetImage(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if img == nil || img.Name != name || img.Width != 640 {
		t.Errorf("GetImage() = %+v, want renamed image keeping its size", img)
	}

	if err := s.DeleteImage(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	if img, _ := s.GetImage(ctx, ids[0]); img != nil {
		t.Error("image still present after DeleteImage()")
	}
	if err := s.DeleteImage(ctx, ids[0]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteImage() twice error = %v, want ErrNotFound", err)
	}
}

func testLabels(t *testing.T, s domain.Store) {
	ctx := context.Background()
	ids := Seed(t, s, "p", 1)
	Seed(t, s, "q", 0)

	if err := s.CreateAnnotation(ctx, Box("a1", ids[0], "")); err != nil {
		t.Fatalf("CreateAnnotation() error = %v", err)
	}

	cat := domain.Label{ID: "cat", ProjectID: "p", Name: "cat", Color: "#fff"}
	if err := s.CreateLabel(ctx, cat, []string{"a1"}); err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	if err := s.CreateLabel(ctx, domain.Label{ID: "dog", ProjectID: "q", Name: "dog", Color: "#000"}, nil); err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}

	all, err := s.GetLabels(ctx)
	if err != nil {
		t.Fatalf("GetLabels() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetLabels() = %d labels, want 2", len(all))
	}
	scoped, err := s.GetLabelsByProjectID(ctx, "p")
	if err != nil {
		t.Fatalf("GetLabelsByProjectID() error = %v", err)
	}
	if len(scoped) != 1 || scoped[0].ID != "cat" {
		t.Errorf("GetLabelsByProjectID(p) = %+v, want [cat]", scoped)
	}

	anns, err := s.GetAnnotations(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetAnnotations() error = %v", err)
	}
	if len(anns) != 1 || anns[0].LabelID != "cat" {
		t.Fatalf("annotation not associated with created label: %+v", anns)
	}
	if anns[0].Label == nil || anns[0].Label.Name != "cat" {
		t.Errorf("annotation label not denormalized: %+v", anns[0].Label)
	}

	color := "#123456"
	if err := s.UpdateLabel(ctx, "cat", domain.LabelUpdate{Color: &color}); err != nil {
		t.Fatalf("UpdateLabel() error = %v", err)
	}
	anns, _ = s.GetAnnotations(ctx, ids[0])
	if anns[0].Label == nil || anns[0].Label.Color != color {
		t.Errorf("label update not visible through annotation: %+v", anns[0].Label)
	}

	if err := s.DeleteLabel(ctx, "cat"); err != nil {
		t.Fatalf("DeleteLabel() error = %v", err)
	}
	anns, _ = s.GetAnnotations(ctx, ids[0])
	if len(anns) != 1 || anns[0].Label != nil {
		t.Errorf("after DeleteLabel() annotations = %+v, want one annotation without label", anns)
	}
	if err := s.DeleteLabel(ctx, "cat"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteLabel() twice error = %v, want ErrNotFound", err)
	}
}

func testAnnotations(t *testing.T, s domain.Store) {
	ctx := context.Background()
	ids := Seed(t, s, "p", 2)

	if err := s.CreateAnnotation(ctx, Box("a1", ids[0], "")); err != nil {
		t.Fatalf("CreateAnnotation() error = %v", err)
	}
	if err := s.CreateAnnotation(ctx, Box("a2", ids[1], "")); err != nil {
		t.Fatalf("CreateAnnotation() error = %v", err)
	}

	incomplete := Box("bad", ids[0], "")
	incomplete.Coordinates = incomplete.Coordinates[:1]
	if err := s.CreateAnnotation(ctx, incomplete); !errors.Is(err, domain.ErrIncompleteAnnotation) {
		t.Errorf("CreateAnnotation(incomplete) error = %v, want ErrIncompleteAnnotation", err)
	}

	anns, err := s.GetAnnotations(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetAnnotations() error = %v", err)
	}
	if len(anns) != 1 || anns[0].ID != "a1" {
		t.Fatalf("GetAnnotations() = %+v, want [a1]", anns)
	}
	if len(anns[0].Coordinates) != 2 || anns[0].Coordinates[1].X != 30 {
		t.Errorf("coordinates not round-tripped: %+v", anns[0].Coordinates)
	}

	coords := []domain.Point{{X: 5, Y: 5}, {X: 6, Y: 6}}
	color := "#00ff00"
	if err := s.UpdateAnnotation(ctx, "a1", domain.AnnotationUpdate{Coordinates: coords, Color: &color}); err != nil {
		t.Fatalf("UpdateAnnotation() error = %v", err)
	}
	anns, _ = s.GetAnnotations(ctx, ids[0])
	if anns[0].Color != color || anns[0].Coordinates[0].X != 5 || anns[0].Name != "a1" {
		t.Errorf("UpdateAnnotation() result = %+v", anns[0])
	}

	if err := s.UpdateAnnotation(ctx, "missing", domain.AnnotationUpdate{Color: &color}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateAnnotation(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteAnnotation(ctx, "a1"); err != nil {
		t.Fatalf("DeleteAnnotation() error = %v", err)
	}
	anns, _ = s.GetAnnotations(ctx, ids[0])
	if len(anns) != 0 {
		t.Errorf("GetAnnotations() after delete = %+v, want empty", anns)
	}
	if err := s.DeleteAnnotation(ctx, "a1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteAnnotation() twice error = %v, want ErrNotFound", err)
	}
}

func testCascade(t *testing.T, s domain.Store) {
	ctx := context.Background()
	ids := Seed(t, s, "p", 2)
	if err := s.CreateLabel(ctx, domain.Label{ID: "l", ProjectID: "p", Name: "l", Color: "#fff"}, nil); err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	if err := s.CreateAnnotation(ctx, Box("a1", ids[0], "l")); err != nil {
		t.Fatalf("CreateAnnotation() error = %v", err)
	}
	if err := s.SaveTask(ctx, domain.Task{ID: "t", ProjectID: "p", Name: "t"}); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if err := s.SaveSetting(ctx, domain.Setting{ProjectID: "p", Key: "k", Value: "v"}); err != nil {
		t.Fatalf("SaveSetting() error = %v", err)
	}

	if err := s.DeleteProject(ctx, "p"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if n, _ := s.FetchImagesCount(ctx, "p"); n != 0 {
		t.Errorf("FetchImagesCount() after project delete = %d, want 0", n)
	}
	if labels, _ := s.GetLabelsByProjectID(ctx, "p"); len(labels) != 0 {
		t.Errorf("labels survived project delete: %+v", labels)
	}
	if anns, _ := s.GetAnnotations(ctx, ids[0]); len(anns) != 0 {
		t.Errorf("annotations survived project delete: %+v", anns)
	}
	if tasks, _ := s.GetTasksByProjectID(ctx, "p"); len(tasks) != 0 {
		t.Errorf("tasks survived project delete: %+v", tasks)
	}
	if settings, _ := s.GetSettings(ctx, "p"); len(settings) != 0 {
		t.Errorf("settings survived project delete: %+v", settings)
	}
}

func testTasks(t *testing.T, s domain.Store) {
	ctx := context.Background()
	Seed(t, s, "p", 0)
	Seed(t, s, "q", 0)
	created := time.Now().UTC().Truncate(time.Second)
	due := created.Add(48 * time.Hour)

	first := domain.Task{ID: "t1", ProjectID: "p", Name: "boxes", Description: "draw every car", AssignedTo: "ana", DueDate: &due, CreatedAt: created}
	if err := s.SaveTask(ctx, first); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	second := domain.Task{ID: "t2", ProjectID: "p", Name: "review", Status: domain.TaskReview, CreatedAt: created.Add(time.Second)}
	if err := s.SaveTask(ctx, second); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if err := s.SaveTask(ctx, domain.Task{ID: "t3", ProjectID: "q", Name: "other"}); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if err := s.SaveTask(ctx, domain.Task{ID: "bad", ProjectID: "p", Status: "done"}); !errors.Is(err, domain.ErrInvalidTaskStatus) {
		t.Errorf("SaveTask(bad status) error = %v, want ErrInvalidTaskStatus", err)
	}

	tasks, err := s.GetTasksByProjectID(ctx, "p")
	if err != nil {
		t.Fatalf("GetTasksByProjectID() error = %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "t1" || tasks[1].ID != "t2" {
		t.Fatalf("GetTasksByProjectID(p) = %+v, want [t1 t2]", tasks)
	}
	got := tasks[0]
	if got.Status != domain.TaskPending || got.AssignedTo != "ana" || got.Description != first.Description {
		t.Errorf("task not round-tripped: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if tasks[1].DueDate != nil {
		t.Errorf("DueDate of t2 = %v, want nil", tasks[1].DueDate)
	}

	first.Status = domain.TaskInProgress
	first.DueDate = nil
	first.CreatedAt = time.Time{}
	if err := s.SaveTask(ctx, first); err != nil {
		t.Fatalf("SaveTask() update error = %v", err)
	}
	task, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task == nil || task.Status != domain.TaskInProgress || task.DueDate != nil {
		t.Errorf("GetTask() after update = %+v", task)
	}
	if task != nil && !task.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want the original %v", task.CreatedAt, created)
	}

	if missing, err := s.GetTask(ctx, "nope"); err != nil || missing != nil {
		t.Errorf("GetTask(nope) = %+v, %v; want nil, nil", missing, err)
	}
	if err := s.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if err := s.DeleteTask(ctx, "t1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteTask() twice error = %v, want ErrNotFound", err)
	}
	if tasks, _ := s.GetTasksByProjectID(ctx, "p"); len(tasks) != 1 {
		t.Errorf("GetTasksByProjectID(p) after delete = %+v", tasks)
	}
}

func testSettings(t *testing.T, s domain.Store) {
	ctx := context.Background()
	Seed(t, s, "p", 0)
	Seed(t, s, "q", 0)

	for _, setting := range []domain.Setting{
		{ProjectID: "p", Key: "theme", Value: "dark"},
		{ProjectID: "p", Key: "autosave", Value: "true"},
		{ProjectID: "q", Key: "theme", Value: "light"},
		{ProjectID: "p", Key: "theme", Value: "solarized"},
	} {
		if err := s.SaveSetting(ctx, setting); err != nil {
			t.Fatalf("SaveSetting(%+v) error = %v", setting, err)
		}
	}

	settings, err := s.GetSettings(ctx, "p")
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	want := []domain.Setting{
		{ProjectID: "p", Key: "autosave", Value: "true"},
		{ProjectID: "p", Key: "theme", Value: "solarized"},
	}
	if len(settings) != len(want) {
		t.Fatalf("GetSettings(p) = %+v, want %+v", settings, want)
	}
	for i := range want {
		if settings[i] != want[i] {
			t.Errorf("setting %d = %+v, want %+v", i, settings[i], want[i])
		}
	}

	if err := s.DeleteSetting(ctx, "p", "autosave"); err != nil {
		t.Fatalf("DeleteSetting() error = %v", err)
	}
	if err := s.DeleteSetting(ctx, "p", "autosave"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteSetting() twice error = %v, want ErrNotFound", err)
	}
	if other, _ := s.GetSettings(ctx, "q"); len(other) != 1 || other[0].Value != "light" {
		t.Errorf("GetSettings(q) = %+v", other)
	}
	if empty, err := s.GetSettings(ctx, "none"); err != nil || len(empty) != 0 {
		t.Errorf("GetSettings(none) = %+v, %v; want empty", empty, err)
	}
}

func imageIDs(images []domain.ImageData) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}
