package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/queue"
)

// ListFields handles GET /api/data-types/:id/fields. Readable by every
// authenticated user.
func (h *DataHandler) ListFields(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	if fields, ok := h.Catalog.GetFields(ctx, typeID); ok {
		return c.JSON(http.StatusOK, fields)
	}
	fields, err := h.Fields.ListByType(ctx, typeID)
	if err != nil {
		return respondError(c, err)
	}
	if fields == nil {
		fields = []model.DataField{}
	}
	h.Catalog.SetFields(ctx, typeID, fields)
	return c.JSON(http.StatusOK, fields)
}

// HasFields handles GET /api/data-types/:id/has-fields, letting the UI
// decide whether record entry can be offered yet.
func (h *DataHandler) HasFields(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	has, err := h.Types.HasFields(c.Request().Context(), typeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"has_fields": has})
}

// AddField handles POST /api/data-types/:id/fields (admin only). The
// physical table is rebuilt inside the repository call; existing
// records survive with the new column set to NULL.
func (h *DataHandler) AddField(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		FieldName       string   `json:"field_name"`
		FieldType       string   `json:"field_type"`
		IsRequired      bool     `json:"is_required"`
		Description     string   `json:"description"`
		ValidationRules string   `json:"validation_rules"`
		EnumValues      []string `json:"enum_values"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.FieldName == "" || body.FieldType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "field name and type are required"})
	}
	kind := model.FieldKind(body.FieldType)
	if !kind.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported field type"})
	}

	field := &model.DataField{
		DataTypeID:      typeID,
		FieldName:       body.FieldName,
		FieldType:       kind,
		IsRequired:      body.IsRequired,
		Description:     body.Description,
		ValidationRules: body.ValidationRules,
		EnumValues:      body.EnumValues,
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermAdmin); err != nil {
		return respondError(c, err)
	}
	if err := h.Fields.Add(ctx, field); err != nil {
		return respondError(c, err)
	}
	h.Catalog.Invalidate(ctx)

	ev := queue.NewAuditEvent(queue.EventFieldAdded, userID)
	ev.DataTypeID = typeID
	ev.Detail = body.FieldName
	publishAudit(ev)

	return c.JSON(http.StatusCreated, echo.Map{"id": field.ID, "message": "field added"})
}

// RemoveField handles DELETE /api/data-types/:id/fields/:fieldID
// (admin only). Drops the column and its data via a rebuild.
func (h *DataHandler) RemoveField(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	fieldID, err := parseID(c, "fieldID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field id"})
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermAdmin); err != nil {
		return respondError(c, err)
	}
	if err := h.Fields.Remove(ctx, typeID, fieldID); err != nil {
		return respondError(c, err)
	}
	h.Catalog.Invalidate(ctx)

	ev := queue.NewAuditEvent(queue.EventFieldRemoved, userID)
	ev.DataTypeID = typeID
	publishAudit(ev)

	return c.JSON(http.StatusOK, echo.Map{"message": "field removed"})
}

// SetEnumValues handles PUT /api/data-types/:id/fields/:fieldID/enum-values
// (admin only), replacing the closed value list of an enum field.
func (h *DataHandler) SetEnumValues(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	fieldID, err := parseID(c, "fieldID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field id"})
	}
	var body struct {
		Values []string `json:"values"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermAdmin); err != nil {
		return respondError(c, err)
	}
	if err := h.Fields.SetEnumValues(ctx, fieldID, body.Values); err != nil {
		return respondError(c, err)
	}
	h.Catalog.Invalidate(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": "enum values updated"})
}
