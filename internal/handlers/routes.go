package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-screening/internal/middleware"
)

// RegisterRoutes mounts the API under /api. Literal screening paths are registered
// before the /:id routes so they are not captured as ids.
func RegisterRoutes(app *fiber.App, auth fiber.Handler, screening *ScreeningHandler, jobs *JobHandler) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	employer := api.Group("", auth, middleware.RequireRole(middleware.RoleEmployer))

	employer.Post("/jobs", jobs.HandleCreate)
	employer.Get("/jobs/:id", jobs.HandleGet)

	employer.Post("/screening/batch-upload", screening.HandleBatchUpload)
	employer.Get("/screening/results", screening.HandleGetResults)
	employer.Get("/screening/analytics", screening.HandleGetAnalytics)
	employer.Put("/screening/shortlist", screening.HandleUpdateShortlist)
	employer.Get("/screening/:id/export", screening.HandleExport)
	employer.Post("/screening/:id/cancel", screening.HandleCancel)
	employer.Post("/screening/:id/retry", screening.HandleRetry)
	employer.Get("/screening/:id", screening.HandleGetStatus)
	employer.Delete("/screening/:id", screening.HandleDelete)
}
