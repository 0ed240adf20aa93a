package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lewtec/rotulador-studio/internal/blob"
	"github.com/lewtec/rotulador-studio/internal/browse"
	"github.com/lewtec/rotulador-studio/internal/domain"
)

type NextResponse struct {
	ID      string `json:"id"`
	HasNext bool   `json:"hasNext"`
}

type PreviousResponse struct {
	ID          string `json:"id"`
	HasPrevious bool   `json:"hasPrevious"`
}

func (s *Server) nextImage(c *fiber.Ctx) error {
	id, ok, err := s.cache.NextImage(c.UserContext(), c.Params("id"), c.Params("imageId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(NextResponse{ID: id, HasNext: ok})
}

func (s *Server) previousImage(c *fiber.Ctx) error {
	id, ok, err := s.cache.PreviousImage(c.UserContext(), c.Params("id"), c.Params("imageId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(PreviousResponse{ID: id, HasPrevious: ok})
}

func (s *Server) clearCache(c *fiber.Ctx) error {
	if err := s.cache.ClearImageCache(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) page(c *fiber.Ctx) error {
	size := c.QueryInt("size", s.pageSize)
	if size < 1 {
		return badRequest(c, "size must be positive", nil)
	}
	pager := browse.NewPager(s.store, c.Params("id"), size)
	if err := pager.SetPageIndex(c.UserContext(), c.QueryInt("index", 0)); err != nil {
		return fail(c, err)
	}
	return c.JSON(pager.State())
}

// imageBlob serves the encoded payload referenced by the image's data key
func (s *Server) imageBlob(c *fiber.Ctx) error {
	if s.blobs == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": true, "message": "no blob store configured", "code": CodeInternal,
		})
	}
	id := c.Params("id")
	var img *domain.ImageData
	var err error
	if project := c.Query("project"); project != "" {
		img, err = s.cache.Image(c.UserContext(), project, id)
	} else {
		img, err = s.store.GetImage(c.UserContext(), id)
	}
	if err != nil {
		return fail(c, err)
	}
	if img == nil {
		return notFound(c, "image", id)
	}
	data, err := s.blobs.Load(c.UserContext(), img.Data)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, blob.ContentType(img.Data))
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(data)
}
