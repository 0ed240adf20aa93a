package annotation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lewtec/rotulador-studio/internal/blob"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"golang.org/x/sync/errgroup"
)

func DecodeImage(filepath string) (image.Image, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// EncodePNG re-encodes img as PNG and returns the bytes with their sha256
func EncodePNG(img image.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	hash, err := HashReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), hash, nil
}

// Ingester turns folders of image files into images of a project. Files are
// stored as PNG in the blob store under their content hash.
type Ingester struct {
	Store domain.Store
	Blobs blob.Store
	// Jobs is the amount of concurrent encoders, at least one
	Jobs int
}

type ingestItem struct {
	id   string
	path string
}

// Ingest walks the inputs and adds every decodable image to projectID,
// creating the project when missing. Files that are not images are skipped.
// Image ids are UUIDv7 minted in walk order, so id order is ingest order.
func (in *Ingester) Ingest(ctx context.Context, projectID string, inputs []string) ([]domain.ImageData, error) {
	if err := in.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	jobs := in.Jobs
	if jobs < 1 {
		jobs = 1
	}
	queue := make(chan ingestItem, 10)
	results := make(chan domain.ImageData, 10)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(queue)
		for _, input := range inputs {
			err := filepath.WalkDir(input, func(path string, info fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() {
					return nil
				}
				id, err := uuid.NewV7()
				if err != nil {
					return err
				}
				select {
				case queue <- ingestItem{id: id.String(), path: path}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
			if err != nil {
				return fmt.Errorf("while walking '%s': %w", input, err)
			}
		}
		return nil
	})

	workers, wctx := errgroup.WithContext(gctx)
	for i := 0; i < jobs; i++ {
		workers.Go(func() error {
			for item := range queue {
				img, err := in.ingestFile(wctx, projectID, item)
				if err != nil {
					return err
				}
				if img == nil {
					continue
				}
				results <- *img
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(results)
		return workers.Wait()
	})

	var ingested []domain.ImageData
	for img := range results {
		ingested = append(ingested, img)
	}
	sort.Slice(ingested, func(i, j int) bool { return ingested[i].ID < ingested[j].ID })
	if err := g.Wait(); err != nil {
		return ingested, err
	}
	return ingested, nil
}

func (in *Ingester) ensureProject(ctx context.Context, projectID string) error {
	p, err := in.Store.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("while looking up project %s: %w", projectID, err)
	}
	if p != nil {
		return nil
	}
	log.Printf("ingest: creating project %s", projectID)
	now := time.Now().UTC()
	return in.Store.CreateProject(ctx, domain.Project{ID: projectID, Name: projectID, CreatedAt: now, LastModified: now})
}

// ingestFile returns nil for files that are not images
func (in *Ingester) ingestFile(ctx context.Context, projectID string, item ingestItem) (*domain.ImageData, error) {
	img, err := DecodeImage(item.path)
	if err != nil {
		log.Printf("ingest: skipping '%s': %s", item.path, err)
		return nil, nil
	}
	data, hash, err := EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("while encoding '%s': %w", item.path, err)
	}
	key := hash + ".png"
	if err := in.Blobs.Save(ctx, key, data, "image/png"); err != nil {
		return nil, fmt.Errorf("while storing '%s': %w", item.path, err)
	}
	bounds := img.Bounds()
	record := domain.ImageData{
		ID:        item.id,
		ProjectID: projectID,
		Name:      filepath.Base(item.path),
		Data:      key,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		CreatedAt: time.Now().UTC(),
	}
	if err := in.Store.CreateImage(ctx, record); err != nil {
		return nil, fmt.Errorf("while creating image for '%s': %w", item.path, err)
	}
	log.Printf("ingest: %s -> %s", item.path, record.ID)
	return &record, nil
}
