package domain

import (
	"errors"
	"testing"
)

func TestAnnotation_Validate(t *testing.T) {
	pts := func(n int) []Point {
		out := make([]Point, n)
		for i := range out {
			out[i] = Point{X: float64(i), Y: float64(i)}
		}
		return out
	}

	tests := []struct {
		name    string
		ann     Annotation
		wantErr error
	}{
		{"box with two points", Annotation{Type: ShapeBox, Coordinates: pts(2)}, nil},
		{"box with one point", Annotation{Type: ShapeBox, Coordinates: pts(1)}, ErrIncompleteAnnotation},
		{"box with three points", Annotation{Type: ShapeBox, Coordinates: pts(3)}, ErrIncompleteAnnotation},
		{"polygon with three points", Annotation{Type: ShapePolygon, Coordinates: pts(3)}, nil},
		{"polygon with two points", Annotation{Type: ShapePolygon, Coordinates: pts(2)}, ErrIncompleteAnnotation},
		{"free draw with one point", Annotation{Type: ShapeFreeDraw, Coordinates: pts(1)}, nil},
		{"free draw without points", Annotation{Type: ShapeFreeDraw}, ErrIncompleteAnnotation},
		{"unknown shape", Annotation{Type: "circle", Coordinates: pts(4)}, ErrInvalidShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ann.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnnotation_Clone(t *testing.T) {
	orig := Annotation{
		ID:          "a",
		Type:        ShapeBox,
		Coordinates: []Point{{1, 2}, {3, 4}},
		Label:       &Label{ID: "l", Name: "cat"},
	}
	c := orig.Clone()
	c.Coordinates[0].X = 99
	c.Label.Name = "dog"

	if orig.Coordinates[0].X != 1 {
		t.Errorf("clone shares coordinates with original")
	}
	if orig.Label.Name != "cat" {
		t.Errorf("clone shares label with original")
	}
}

func TestAnnotationUpdate_Apply(t *testing.T) {
	orig := Annotation{ID: "a", Name: "cat", Color: "#fff", Type: ShapeBox, Coordinates: []Point{{0, 0}, {1, 1}}}

	t.Run("nil fields keep values", func(t *testing.T) {
		got := AnnotationUpdate{}.Apply(orig)
		if got.Name != "cat" || got.Color != "#fff" || len(got.Coordinates) != 2 {
			t.Errorf("Apply() changed untouched fields: %+v", got)
		}
	})

	t.Run("set fields override", func(t *testing.T) {
		color := "#000"
		got := AnnotationUpdate{Color: &color, Coordinates: []Point{{5, 5}, {6, 6}}}.Apply(orig)
		if got.Color != "#000" {
			t.Errorf("Color = %v, want #000", got.Color)
		}
		if got.Coordinates[0].X != 5 {
			t.Errorf("Coordinates not replaced: %+v", got.Coordinates)
		}
		if orig.Color != "#fff" || orig.Coordinates[0].X != 0 {
			t.Errorf("Apply() mutated the original")
		}
	})
}
