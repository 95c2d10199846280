// Package handler implements the HTTP surface over the catalog, record
// and permission repositories. Handlers authorize through the
// permission guard, translate sentinel repository errors to stable
// status codes, and emit best-effort audit events for every mutation.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/datavue/internal/queue"
	"github.com/iliyamo/datavue/internal/repository"
)

// getUserID extracts the authenticated user's id stored by the JWT
// middleware.
func getUserID(c echo.Context) (int64, error) {
	id, ok := c.Get("user_id").(int64)
	if !ok {
		return 0, errors.New("missing user id in context")
	}
	return id, nil
}

// respondError maps repository sentinel errors to stable HTTP statuses.
// Unknown errors become opaque 500s so internal details never leak.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrTypeNotFound),
		errors.Is(err, repository.ErrFieldNotFound),
		errors.Is(err, repository.ErrRecordNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrDuplicateName),
		errors.Is(err, repository.ErrDuplicateField),
		errors.Is(err, repository.ErrUsernameExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrStorageBusy):
		return c.JSON(http.StatusServiceUnavailable,
			echo.Map{"error": "storage temporarily locked, retry in a few seconds"})
	case errors.Is(err, repository.ErrNoFields),
		errors.Is(err, repository.ErrNoUpdatableFields),
		errors.Is(err, repository.ErrInvalidCoordinate),
		errors.Is(err, repository.ErrInvalidFieldName),
		errors.Is(err, repository.ErrLastAdmin):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// publishAudit emits an audit event without blocking the request or
// failing it when the broker is down.
func publishAudit(ev queue.AuditEvent) {
	go func() {
		_ = queue.PublishAudit(context.Background(), ev)
	}()
}
