package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/queue"
)

// decodeValues reads a record payload from the request body. Echo's
// default binder merges path parameters into map targets, which would
// smuggle "typeID"/"recordID" keys into the payload, so the body is
// decoded directly.
func decodeValues(c echo.Context) (model.Record, error) {
	var values model.Record
	if err := json.NewDecoder(c.Request().Body).Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

// ListRecords handles GET /api/data-types/:typeID/records. Readable by every
// authenticated user; ?limit=0 (the default) returns all records.
func (h *DataHandler) ListRecords(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "typeID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermRead); err != nil {
		return respondError(c, err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	records, err := h.Records.List(ctx, typeID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// GetRecord handles GET /api/data-types/:typeID/records/:recordID.
func (h *DataHandler) GetRecord(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "typeID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	recordID, err := parseID(c, "recordID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermRead); err != nil {
		return respondError(c, err)
	}
	record, err := h.Records.Get(ctx, typeID, recordID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// InsertRecord handles POST /api/data-types/:typeID/records. Requires a write grant
// (or admin role).
func (h *DataHandler) InsertRecord(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "typeID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermWrite); err != nil {
		return respondError(c, err)
	}

	values, err := decodeValues(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	recordID, err := h.Records.Insert(ctx, typeID, values, userID)
	if err != nil {
		return respondError(c, err)
	}

	ev := queue.NewAuditEvent(queue.EventRecordCreated, userID)
	ev.DataTypeID = typeID
	ev.RecordID = recordID
	publishAudit(ev)

	return c.JSON(http.StatusCreated, echo.Map{"record_id": recordID, "message": "record added"})
}

// UpdateRecord handles PUT /api/data-types/:typeID/records/:recordID.
// Record edits
// are an admin-level operation in this design: a write grant covers
// inserting new rows, not rewriting existing ones.
func (h *DataHandler) UpdateRecord(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "typeID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	recordID, err := parseID(c, "recordID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermAdmin); err != nil {
		return respondError(c, err)
	}

	values, err := decodeValues(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Records.Update(ctx, typeID, recordID, values); err != nil {
		return respondError(c, err)
	}

	ev := queue.NewAuditEvent(queue.EventRecordUpdated, userID)
	ev.DataTypeID = typeID
	ev.RecordID = recordID
	publishAudit(ev)

	return c.JSON(http.StatusOK, echo.Map{"message": "record updated"})
}

// DeleteRecord handles DELETE /api/data-types/:typeID/records/:recordID
// (admin-level,
// same policy as UpdateRecord).
func (h *DataHandler) DeleteRecord(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "typeID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	recordID, err := parseID(c, "recordID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermAdmin); err != nil {
		return respondError(c, err)
	}
	if err := h.Records.Delete(ctx, typeID, recordID); err != nil {
		return respondError(c, err)
	}

	ev := queue.NewAuditEvent(queue.EventRecordDeleted, userID)
	ev.DataTypeID = typeID
	ev.RecordID = recordID
	publishAudit(ev)

	return c.JSON(http.StatusOK, echo.Map{"message": "record deleted"})
}

// Statistics handles GET /api/data-types/:typeID/statistics, aggregating the
// numeric fields of the type.
func (h *DataHandler) Statistics(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	typeID, err := parseID(c, "typeID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermRead); err != nil {
		return respondError(c, err)
	}
	stats, err := h.Records.Statistics(ctx, typeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
