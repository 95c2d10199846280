package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/datavue/internal/cache"
	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/queue"
	"github.com/iliyamo/datavue/internal/repository"
)

// DataHandler bundles the repositories behind the data type, field and
// record endpoints. Catalog may be nil-backed; cache misses fall
// through to SQLite.
type DataHandler struct {
	Types   *repository.DataTypeRepo
	Fields  *repository.FieldRepo
	Perms   *repository.PermissionRepo
	Records *repository.RecordRepo
	Catalog *cache.Catalog
}

func NewDataHandler(t *repository.DataTypeRepo, f *repository.FieldRepo, p *repository.PermissionRepo,
	r *repository.RecordRepo, cat *cache.Catalog) *DataHandler {
	return &DataHandler{Types: t, Fields: f, Perms: p, Records: r, Catalog: cat}
}

func parseID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// requireAdminUser re-checks the caller's role against the database, so
// a demoted admin loses structural access immediately rather than at
// token expiry.
func (h *DataHandler) requireAdminUser(ctx context.Context, userID int64) error {
	ok, err := h.Perms.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrPermissionDenied
	}
	return nil
}

// ListTypes handles GET /api/data-types. Every authenticated user sees
// every type (open-read policy); can_edit is computed per caller.
func (h *DataHandler) ListTypes(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	if types, ok := h.Catalog.GetTypes(ctx, userID); ok {
		return c.JSON(http.StatusOK, types)
	}
	types, err := h.Types.List(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	if types == nil {
		types = []model.DataType{}
	}
	h.Catalog.SetTypes(ctx, userID, types)
	return c.JSON(http.StatusOK, types)
}

// CreateType handles POST /api/data-types. Admin only: the route
// middleware screens the token claim and the handler re-checks the
// role in the database.
func (h *DataHandler) CreateType(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if err := h.requireAdminUser(c.Request().Context(), userID); err != nil {
		return respondError(c, err)
	}

	id, err := h.Types.Create(c.Request().Context(), body.Name, body.Description, userID)
	if err != nil {
		return respondError(c, err)
	}
	h.Catalog.Invalidate(c.Request().Context())

	ev := queue.NewAuditEvent(queue.EventTypeCreated, userID)
	ev.DataTypeID = id
	ev.Detail = body.Name
	publishAudit(ev)

	return c.JSON(http.StatusCreated, echo.Map{"id": id, "message": "data type created"})
}

// DeleteType handles DELETE /api/data-types/:id. Structural deletion is
// admin-only; the guard enforces it even for callers holding a write
// grant.
func (h *DataHandler) DeleteType(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	if err := h.Perms.Require(ctx, userID, typeID, model.PermAdmin); err != nil {
		return respondError(c, err)
	}
	if err := h.Types.Delete(ctx, typeID); err != nil {
		return respondError(c, err)
	}
	h.Catalog.Invalidate(ctx)

	ev := queue.NewAuditEvent(queue.EventTypeDeleted, userID)
	ev.DataTypeID = typeID
	publishAudit(ev)

	return c.JSON(http.StatusOK, echo.Map{"message": "data type deleted"})
}
