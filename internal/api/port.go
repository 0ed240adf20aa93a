package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lewtec/rotulador-studio/internal/domain"
)

// CreateLabelRequest is the body of POST /api/labels
type CreateLabelRequest struct {
	Label         domain.Label `json:"label"`
	AnnotationIDs []string     `json:"annotationIds"`
}

// CountResponse is the body of GET /api/projects/:id/images/count
type CountResponse struct {
	Count int `json:"count"`
}

// Projects

func (s *Server) listProjects(c *fiber.Ctx) error {
	projects, err := s.store.ListProjects(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(projects)
}

func (s *Server) getProject(c *fiber.Ctx) error {
	id := c.Params("id")
	project, err := s.store.GetProject(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	if project == nil {
		return notFound(c, "project", id)
	}
	return c.JSON(project)
}

func (s *Server) createProject(c *fiber.Ctx) error {
	var project domain.Project
	if err := c.BodyParser(&project); err != nil {
		return badRequest(c, "invalid project", err)
	}
	if project.ID == "" || project.Name == "" {
		return badRequest(c, "project id and name are required", nil)
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	if project.LastModified.IsZero() {
		project.LastModified = now
	}
	if err := s.store.CreateProject(c.UserContext(), project); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

func (s *Server) updateProject(c *fiber.Ctx) error {
	var update domain.ProjectUpdate
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "invalid project update", err)
	}
	if err := s.store.UpdateProject(c.UserContext(), c.Params("id"), update); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteProject(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.store.DeleteProject(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	if err := s.cache.ClearImageCache(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Images

func (s *Server) listImages(c *fiber.Ctx) error {
	projectID := c.Params("id")
	limit := c.QueryInt("limit", -1)
	if limit < 0 {
		images, err := s.store.FetchImageDataByProjectID(c.UserContext(), projectID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(images)
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		return badRequest(c, "offset must not be negative", nil)
	}
	images, err := s.store.FetchImageDataRange(c.UserContext(), projectID, offset, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(images)
}

func (s *Server) countImages(c *fiber.Ctx) error {
	count, err := s.store.FetchImagesCount(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(CountResponse{Count: count})
}

func (s *Server) getImage(c *fiber.Ctx) error {
	id := c.Params("id")
	img, err := s.store.GetImage(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	if img == nil {
		return notFound(c, "image", id)
	}
	return c.JSON(img)
}

func (s *Server) createImage(c *fiber.Ctx) error {
	var img domain.ImageData
	if err := c.BodyParser(&img); err != nil {
		return badRequest(c, "invalid image", err)
	}
	if img.ID == "" || img.ProjectID == "" {
		return badRequest(c, "image id and projectId are required", nil)
	}
	if err := s.store.CreateImage(c.UserContext(), img); err != nil {
		return fail(c, err)
	}
	if err := s.cache.ClearImageCache(c.UserContext(), img.ProjectID); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(img)
}

func (s *Server) updateImage(c *fiber.Ctx) error {
	var update domain.ImageUpdate
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "invalid image update", err)
	}
	id := c.Params("id")
	if err := s.store.UpdateImage(c.UserContext(), id, update); err != nil {
		return fail(c, err)
	}
	if img, err := s.store.GetImage(c.UserContext(), id); err == nil && img != nil {
		if err := s.cache.ClearImageCache(c.UserContext(), img.ProjectID); err != nil {
			return fail(c, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteImage(c *fiber.Ctx) error {
	id := c.Params("id")
	img, err := s.store.GetImage(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	if err := s.store.DeleteImage(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	if img != nil {
		if err := s.cache.ClearImageCache(c.UserContext(), img.ProjectID); err != nil {
			return fail(c, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Annotations

func (s *Server) listAnnotations(c *fiber.Ctx) error {
	anns, err := s.store.GetAnnotations(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(anns)
}

func (s *Server) createAnnotation(c *fiber.Ctx) error {
	var a domain.Annotation
	if err := c.BodyParser(&a); err != nil {
		return badRequest(c, "invalid annotation", err)
	}
	if a.ID == "" || a.ImageID == "" {
		return badRequest(c, "annotation id and imageId are required", nil)
	}
	if err := s.store.CreateAnnotation(c.UserContext(), a); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (s *Server) updateAnnotation(c *fiber.Ctx) error {
	var update domain.AnnotationUpdate
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "invalid annotation update", err)
	}
	if err := s.store.UpdateAnnotation(c.UserContext(), c.Params("id"), update); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteAnnotation(c *fiber.Ctx) error {
	if err := s.store.DeleteAnnotation(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Labels

func (s *Server) listLabels(c *fiber.Ctx) error {
	labels, err := s.store.GetLabels(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(labels)
}

func (s *Server) projectLabels(c *fiber.Ctx) error {
	labels, err := s.store.GetLabelsByProjectID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(labels)
}

func (s *Server) createLabel(c *fiber.Ctx) error {
	var req CreateLabelRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid label", err)
	}
	if req.Label.ID == "" || req.Label.Name == "" {
		return badRequest(c, "label id and name are required", nil)
	}
	if err := s.store.CreateLabel(c.UserContext(), req.Label, req.AnnotationIDs); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req.Label)
}

func (s *Server) updateLabel(c *fiber.Ctx) error {
	var update domain.LabelUpdate
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "invalid label update", err)
	}
	if err := s.store.UpdateLabel(c.UserContext(), c.Params("id"), update); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteLabel(c *fiber.Ctx) error {
	if err := s.store.DeleteLabel(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
