package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-screening/internal/apperrors"
	"alfredoptarigan/resume-screening/internal/middleware"
	"alfredoptarigan/resume-screening/internal/models"
	"alfredoptarigan/resume-screening/internal/services"
)

type JobHandler struct {
	jobService services.JobPostingService
}

func NewJobHandler(jobService services.JobPostingService) *JobHandler {
	return &JobHandler{
		jobService: jobService,
	}
}

// HandleCreate handles POST /jobs
func (h *JobHandler) HandleCreate(c *fiber.Ctx) error {
	employerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req models.CreateJobPostingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}

	job, err := h.jobService.Create(c.UserContext(), employerID, req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleGet handles GET /jobs/:id
func (h *JobHandler) HandleGet(c *fiber.Ctx) error {
	employerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return err
	}

	job, err := h.jobService.Get(c.UserContext(), employerID, id)
	if err != nil {
		return err
	}

	return c.JSON(job)
}
