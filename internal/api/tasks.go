package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lewtec/rotulador-studio/internal/domain"
)

// SettingRequest is the body of PUT /api/projects/:id/settings/:key
type SettingRequest struct {
	Value string `json:"value"`
}

// Tasks

func (s *Server) listTasks(c *fiber.Ctx) error {
	tasks, err := s.store.GetTasksByProjectID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(tasks)
}

func (s *Server) getTask(c *fiber.Ctx) error {
	id := c.Params("id")
	task, err := s.store.GetTask(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	if task == nil {
		return notFound(c, "task", id)
	}
	return c.JSON(task)
}

// saveTask upserts the task named by the path. The answer is the stored task.
func (s *Server) saveTask(c *fiber.Ctx) error {
	var task domain.Task
	if err := c.BodyParser(&task); err != nil {
		return badRequest(c, "invalid task", err)
	}
	task.ID = c.Params("id")
	if task.ProjectID == "" {
		return badRequest(c, "task projectId is required", nil)
	}
	project, err := s.store.GetProject(c.UserContext(), task.ProjectID)
	if err != nil {
		return fail(c, err)
	}
	if project == nil {
		return notFound(c, "project", task.ProjectID)
	}
	if err := s.store.SaveTask(c.UserContext(), task); err != nil {
		return fail(c, err)
	}
	saved, err := s.store.GetTask(c.UserContext(), task.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(saved)
}

func (s *Server) deleteTask(c *fiber.Ctx) error {
	if err := s.store.DeleteTask(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Settings

func (s *Server) listSettings(c *fiber.Ctx) error {
	settings, err := s.store.GetSettings(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(settings)
}

func (s *Server) saveSetting(c *fiber.Ctx) error {
	var req SettingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid setting", err)
	}
	projectID := c.Params("id")
	project, err := s.store.GetProject(c.UserContext(), projectID)
	if err != nil {
		return fail(c, err)
	}
	if project == nil {
		return notFound(c, "project", projectID)
	}
	setting := domain.Setting{ProjectID: projectID, Key: c.Params("key"), Value: req.Value}
	if err := s.store.SaveSetting(c.UserContext(), setting); err != nil {
		return fail(c, err)
	}
	return c.JSON(setting)
}

func (s *Server) deleteSetting(c *fiber.Ctx) error {
	if err := s.store.DeleteSetting(c.UserContext(), c.Params("id"), c.Params("key")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
