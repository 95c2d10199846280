package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/datavue/internal/model"
)

type exportReq struct {
	Limit               int   `json:"limit"`
	IncludeHeaders      *bool `json:"include_headers"`
	IncludeDescriptions bool  `json:"include_descriptions"`
}

// exportData gathers everything an export needs, enforcing the read
// permission and the presence of at least one field.
func (h *DataHandler) exportData(c echo.Context) (*model.DataType, []model.DataField, []model.Record, exportReq, error) {
	var req exportReq
	userID, err := getUserID(c)
	if err != nil {
		return nil, nil, nil, req, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	typeID, err := parseID(c, "id")
	if err != nil {
		return nil, nil, nil, req, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if err := h.Perms.Require(ctx, userID, typeID, model.PermRead); err != nil {
		return nil, nil, nil, req, err
	}

	req.Limit = 100
	if err := c.Bind(&req); err != nil {
		return nil, nil, nil, req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	dt, err := h.Types.Get(ctx, typeID)
	if err != nil {
		return nil, nil, nil, req, err
	}
	fields, err := h.Fields.ListByType(ctx, typeID)
	if err != nil {
		return nil, nil, nil, req, err
	}
	if len(fields) == 0 {
		return nil, nil, nil, req, echo.NewHTTPError(http.StatusBadRequest, "data type has no fields")
	}
	records, err := h.Records.List(ctx, typeID, req.Limit, 0)
	if err != nil {
		return nil, nil, nil, req, err
	}
	return dt, fields, records, req, nil
}

func exportHeaders(fields []model.DataField, withDescriptions bool) []string {
	headers := make([]string, len(fields))
	for i, f := range fields {
		if withDescriptions && f.Description != "" {
			headers[i] = fmt.Sprintf("%s (%s)", f.FieldName, f.Description)
		} else {
			headers[i] = f.FieldName
		}
	}
	return headers
}

// formatExportValue renders a record value as a spreadsheet cell.
// Booleans come back from SQLite as 0/1 integers.
func formatExportValue(f model.DataField, v any) string {
	if v == nil {
		return ""
	}
	switch f.FieldType {
	case model.KindBoolean:
		switch t := v.(type) {
		case bool:
			if t {
				return "Yes"
			}
			return "No"
		case int64:
			if t != 0 {
				return "Yes"
			}
			return "No"
		}
	case model.KindCoordinates:
		if coords, ok := v.(model.Coordinates); ok {
			return fmt.Sprintf("%g, %g", coords.Latitude, coords.Longitude)
		}
	}
	return fmt.Sprint(v)
}

func exportFilename(typeName, ext string) string {
	safe := strings.NewReplacer(" ", "_", "(", "", ")", "", ",", "").Replace(typeName)
	return fmt.Sprintf("%s_%s.%s", safe, time.Now().Format("20060102_150405"), ext)
}

// ExportCSV handles POST /api/data-types/:id/export-csv. The output is
// UTF-8 with a BOM so spreadsheet tools pick the encoding up.
func (h *DataHandler) ExportCSV(c echo.Context) error {
	dt, fields, records, req, err := h.exportData(c)
	if err != nil {
		if httpErr, ok := err.(*echo.HTTPError); ok {
			return c.JSON(httpErr.Code, echo.Map{"error": fmt.Sprint(httpErr.Message)})
		}
		return respondError(c, err)
	}

	var buf bytes.Buffer
	buf.WriteString("\uFEFF")
	w := csv.NewWriter(&buf)
	if req.IncludeHeaders == nil || *req.IncludeHeaders {
		if err := w.Write(exportHeaders(fields, req.IncludeDescriptions)); err != nil {
			return respondError(c, err)
		}
	}
	for _, rec := range records {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = formatExportValue(f, rec[f.FieldName])
		}
		if err := w.Write(row); err != nil {
			return respondError(c, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, exportFilename(dt.Name, "csv")))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel handles POST /api/data-types/:id/export-excel, producing
// an XLSX workbook with a styled header row.
func (h *DataHandler) ExportExcel(c echo.Context) error {
	dt, fields, records, req, err := h.exportData(c)
	if err != nil {
		if httpErr, ok := err.(*echo.HTTPError); ok {
			return c.JSON(httpErr.Code, echo.Map{"error": fmt.Sprint(httpErr.Message)})
		}
		return respondError(c, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	rowIdx := 1
	if req.IncludeHeaders == nil || *req.IncludeHeaders {
		headerStyle, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return respondError(c, err)
		}
		for i, header := range exportHeaders(fields, req.IncludeDescriptions) {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowIdx)
			_ = f.SetCellValue(sheet, cell, header)
			_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		rowIdx++
	}
	for _, rec := range records {
		for i, fld := range fields {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowIdx)
			_ = f.SetCellValue(sheet, cell, formatExportValue(fld, rec[fld.FieldName]))
		}
		rowIdx++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, exportFilename(dt.Name, "xlsx")))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
