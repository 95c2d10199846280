package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/datavue/internal/cache"
	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/queue"
	"github.com/iliyamo/datavue/internal/repository"
)

// PermissionHandler manages per-type grants for individual users.
// Routes are admin-only; read access needs no grant at all.
type PermissionHandler struct {
	Users   *repository.UserRepo
	Perms   *repository.PermissionRepo
	Catalog *cache.Catalog
}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler(users *repository.UserRepo, perms *repository.PermissionRepo, cat *cache.Catalog) *PermissionHandler {
	return &PermissionHandler{Users: users, Perms: perms, Catalog: cat}
}

// ListForUser handles GET /api/users/:id/permissions.
func (h *PermissionHandler) ListForUser(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		return respondError(c, err)
	}
	perms, err := h.Perms.ListForUser(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	if perms == nil {
		perms = []model.Permission{}
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": perms})
}

type grantReq struct {
	Kind string `json:"permission_type"`
}

// Grant handles POST /api/users/:id/permissions/:typeID. Granting again
// replaces the existing row, so the latest grant wins.
func (h *PermissionHandler) Grant(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	typeID, err := parseID(c, "typeID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type id"})
	}
	grantedBy, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := grantReq{Kind: string(model.PermWrite)}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	kind := model.PermissionKind(req.Kind)
	if !kind.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown permission type"})
	}

	ctx := c.Request().Context()
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		return respondError(c, err)
	}
	if err := h.Perms.Grant(ctx, userID, typeID, kind, grantedBy); err != nil {
		return respondError(c, err)
	}
	// cached type lists carry a can_edit flag per user
	h.Catalog.Invalidate(ctx)

	ev := queue.NewAuditEvent(queue.EventPermissionGranted, grantedBy)
	ev.DataTypeID = typeID
	ev.Detail = fmt.Sprintf("user %d granted %s", userID, kind)
	publishAudit(ev)
	return c.JSON(http.StatusOK, echo.Map{"message": "permission granted"})
}

// Revoke handles DELETE /api/users/:id/permissions/:typeID. Revoking a
// grant that does not exist succeeds silently.
func (h *PermissionHandler) Revoke(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	typeID, err := parseID(c, "typeID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type id"})
	}
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	if err := h.Perms.Revoke(ctx, userID, typeID); err != nil {
		return respondError(c, err)
	}
	h.Catalog.Invalidate(ctx)

	ev := queue.NewAuditEvent(queue.EventPermissionRevoked, callerID)
	ev.DataTypeID = typeID
	ev.Detail = fmt.Sprintf("user %d revoked", userID)
	publishAudit(ev)
	return c.JSON(http.StatusOK, echo.Map{"message": "permission revoked"})
}
