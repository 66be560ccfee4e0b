package handlers

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-screening/internal/apperrors"
	"alfredoptarigan/resume-screening/internal/middleware"
	"alfredoptarigan/resume-screening/internal/models"
	"alfredoptarigan/resume-screening/internal/services"
)

const (
	formFieldResumes = "resumes"
	formFieldJobID   = "jobId"

	exportFormatCSV  = "csv"
	exportFormatJSON = "json"
)

type ScreeningHandler struct {
	screeningService services.ScreeningService
}

func NewScreeningHandler(screeningService services.ScreeningService) *ScreeningHandler {
	return &ScreeningHandler{
		screeningService: screeningService,
	}
}

// HandleBatchUpload handles POST /screening/batch-upload
func (h *ScreeningHandler) HandleBatchUpload(c *fiber.Ctx) error {
	employerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("failed to parse multipart form")
	}

	var jobID string
	if values := form.Value[formFieldJobID]; len(values) > 0 {
		jobID = values[0]
	}

	resp, err := h.screeningService.BatchUpload(c.UserContext(), employerID, jobID, form.File[formFieldResumes])
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// HandleGetResults handles GET /screening/results
func (h *ScreeningHandler) HandleGetResults(c *fiber.Ctx) error {
	employerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	filter, err := parseResultFilter(c, c.Query("screeningJobId"))
	if err != nil {
		return err
	}

	page, err := h.screeningService.GetResults(c.UserContext(), employerID, filter)
	if err != nil {
		return err
	}

	return c.JSON(page)
}

// HandleGetAnalytics handles GET /screening/analytics
func (h *ScreeningHandler) HandleGetAnalytics(c *fiber.Ctx) error {
	employerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	screeningJobID, err := parseID(c.Query("screeningJobId"), "screeningJobId")
	if err != nil {
		return err
	}

	metrics, err := h.screeningService.GetAnalytics(c.UserContext(), employerID, screeningJobID)
	if err != nil {
		return err
	}

	return c.JSON(metrics)
}

// HandleUpdateShortlist handles PUT /screening/shortlist
func (h *ScreeningHandler) HandleUpdateShortlist(c *fiber.Ctx) error {
	employerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req models.ShortlistRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}

	resp, err := h.screeningService.UpdateShortlist(c.UserContext(), employerID, req)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}

// HandleExport handles GET /screening/:id/export
func (h *ScreeningHandler) HandleExport(c *fiber.Ctx) error {
	employerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	format := c.Query("format", exportFormatCSV)
	if format != exportFormatCSV && format != exportFormatJSON {
		return apperrors.NewValidationError("format must be one of [csv json]")
	}

	filter, err := parseResultFilter(c, c.Params("id"))
	if err != nil {
		return err
	}

	results, err := h.screeningService.ExportResults(c.UserContext(), employerID, filter)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("screening-%s.%s", filter.ScreeningJobID, format)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))

	if format == exportFormatJSON {
		return c.JSON(services.BuildJSONExport(filter.ScreeningJobID, results, time.Now()))
	}

	var buf bytes.Buffer
	if err := services.WriteCSV(&buf, results); err != nil {
		return apperrors.NewInternalError("failed to write export", err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

// HandleGetStatus handles GET /screening/:id
func (h *ScreeningHandler) HandleGetStatus(c *fiber.Ctx) error {
	employerID, screeningJobID, err := callerAndJob(c)
	if err != nil {
		return err
	}

	status, err := h.screeningService.GetStatus(c.UserContext(), employerID, screeningJobID)
	if err != nil {
		return err
	}

	return c.JSON(status)
}

// HandleDelete handles DELETE /screening/:id
func (h *ScreeningHandler) HandleDelete(c *fiber.Ctx) error {
	employerID, screeningJobID, err := callerAndJob(c)
	if err != nil {
		return err
	}

	if err := h.screeningService.Delete(c.UserContext(), employerID, screeningJobID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleCancel handles POST /screening/:id/cancel
func (h *ScreeningHandler) HandleCancel(c *fiber.Ctx) error {
	employerID, screeningJobID, err := callerAndJob(c)
	if err != nil {
		return err
	}

	job, err := h.screeningService.Cancel(c.UserContext(), employerID, screeningJobID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"screeningJob": job})
}

// HandleRetry handles POST /screening/:id/retry
func (h *ScreeningHandler) HandleRetry(c *fiber.Ctx) error {
	employerID, screeningJobID, err := callerAndJob(c)
	if err != nil {
		return err
	}

	job, err := h.screeningService.Retry(c.UserContext(), employerID, screeningJobID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"screeningJob": job})
}

func callerAndJob(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	employerID, err := middleware.UserID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	screeningJobID, err := parseID(c.Params("id"), "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return employerID, screeningJobID, nil
}

func parseID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, apperrors.NewValidationError(fmt.Sprintf("%s is required", field))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError(fmt.Sprintf("%s must be a valid UUID", field))
	}
	return id, nil
}

func queryInt(c *fiber.Ctx, key string) (int, bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, apperrors.NewValidationError(fmt.Sprintf("%s must be an integer", key))
	}
	return v, true, nil
}

// parseResultFilter reads the shared result query parameters. Range checks live in the service.
func parseResultFilter(c *fiber.Ctx, rawJobID string) (models.ResultFilter, error) {
	filter := models.ResultFilter{SortDesc: true}

	id, err := parseID(rawJobID, "screeningJobId")
	if err != nil {
		return filter, err
	}
	filter.ScreeningJobID = id

	if v, ok, err := queryInt(c, "minMatch"); err != nil {
		return filter, err
	} else if ok {
		filter.MinMatch = &v
	}

	limit, ok, err := queryInt(c, "limit")
	if err != nil {
		return filter, err
	}
	if ok && limit < 1 {
		return filter, apperrors.NewValidationError("limit must be at least 1")
	}
	filter.Limit = limit

	if filter.Offset, _, err = queryInt(c, "offset"); err != nil {
		return filter, err
	}

	if raw := c.Query("sortDesc"); raw != "" {
		desc, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("sortDesc must be a boolean")
		}
		filter.SortDesc = desc
	}

	filter.Status = models.ResultStatus(c.Query("status"))
	filter.SortBy = c.Query("sortBy")
	return filter, nil
}
