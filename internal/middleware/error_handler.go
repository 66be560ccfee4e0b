package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-screening/internal/apperrors"
	"alfredoptarigan/resume-screening/internal/logger"
)

const internalErrorMessage = "Internal server error"

// ErrorHandler renders every handler error as {"error": {code, message, details}}.
// In production messages are reduced to the status text.
func ErrorHandler(log logger.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := toAppError(err)

		fields := map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"status": appErr.Status,
			"error":  err.Error(),
		}
		if appErr.Status >= http.StatusInternalServerError {
			log.Error("❌ Request failed", fields)
		} else {
			log.Debug("⚠️ Request rejected", fields)
		}

		message, details := appErr.Message, appErr.Details
		if details == "" && appErr.Err != nil {
			details = appErr.Err.Error()
		}
		if production {
			details = ""
			if appErr.Status >= http.StatusInternalServerError {
				message = internalErrorMessage
			} else {
				message = http.StatusText(appErr.Status)
			}
		}

		body := fiber.Map{
			"code":    appErr.Code,
			"message": message,
		}
		if details != "" {
			body["details"] = details
		}
		return c.Status(appErr.Status).JSON(fiber.Map{"error": body})
	}
}

func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	if fe, ok := err.(*fiber.Error); ok {
		return &apperrors.AppError{
			Code:    apperrors.CodeForStatus(fe.Code),
			Status:  fe.Code,
			Message: fe.Message,
		}
	}

	status := apperrors.InferStatus(err)
	return &apperrors.AppError{
		Code:    apperrors.CodeForStatus(status),
		Status:  status,
		Message: err.Error(),
	}
}
