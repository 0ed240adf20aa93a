// Package labels resolves labels by name, creating them on first use.
package labels

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lewtec/rotulador-studio/internal/domain"
)

// MatchMode decides which existing label counts as the same label
type MatchMode int

const (
	// MatchName matches on the exact, case-sensitive name
	MatchName MatchMode = iota
	// MatchNameAndColor also requires the color to be equal, so one name
	// may exist once per color
	MatchNameAndColor
)

func (m MatchMode) String() string {
	switch m {
	case MatchNameAndColor:
		return "name+color"
	default:
		return "name"
	}
}

// ParseMatchMode reads the configuration form of a MatchMode.
// The empty string means MatchName.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return MatchName, nil
	case "name+color", "name_and_color", "name-and-color":
		return MatchNameAndColor, nil
	default:
		return MatchName, fmt.Errorf("unknown label match mode %q", s)
	}
}

// Resolver implements get-or-create over the label repository
type Resolver struct {
	repo domain.LabelRepository
	mode MatchMode
	now  func() time.Time
}

func NewResolver(repo domain.LabelRepository, mode MatchMode) *Resolver {
	return &Resolver{repo: repo, mode: mode, now: time.Now}
}

func (r *Resolver) Mode() MatchMode {
	return r.mode
}

func (r *Resolver) matches(l domain.Label, name, color string) bool {
	if l.Name != name {
		return false
	}
	return r.mode != MatchNameAndColor || l.Color == color
}

// GetOrCreate returns the first label of the project matching name (and
// color, depending on the mode). When none matches, a label with a fresh
// id is created with no annotations attached. An empty projectID searches
// every label.
func (r *Resolver) GetOrCreate(ctx context.Context, projectID, name, color string) (domain.Label, error) {
	var existing []domain.Label
	var err error
	if projectID == "" {
		existing, err = r.repo.GetLabels(ctx)
	} else {
		existing, err = r.repo.GetLabelsByProjectID(ctx, projectID)
	}
	if err != nil {
		return domain.Label{}, fmt.Errorf("while listing labels: %w", err)
	}
	for _, l := range existing {
		if r.matches(l, name, color) {
			return l, nil
		}
	}

	now := r.now()
	label := domain.Label{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.CreateLabel(ctx, label, []string{}); err != nil {
		return domain.Label{}, fmt.Errorf("while creating label %q: %w", name, err)
	}
	log.Printf("labels: created %q (%s) in project %q", name, label.ID, projectID)
	return label, nil
}
