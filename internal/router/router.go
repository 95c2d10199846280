// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/datavue/internal/handler"
	"github.com/iliyamo/datavue/internal/middleware"
)

// Handlers bundles everything RegisterRoutes needs to wire the API.
type Handlers struct {
	Auth  *handler.AuthHandler
	Data  *handler.DataHandler
	Users *handler.UserHandler
	Perms *handler.PermissionHandler
}

// RegisterRoutes registers the full route table. /healthz and
// /api/auth/login are public; everything else requires a valid access
// token, and structural plus user-management routes additionally
// require the admin role.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/healthz", handler.Health)
	e.POST("/api/auth/login", h.Auth.Login)

	api := e.Group("/api")
	api.Use(middleware.JWTAuth(jwtSecret))

	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/auth/me", h.Auth.Me)

	// Catalog. Reads are open to every authenticated user; creating and
	// deleting types is structural and therefore admin-only.
	api.GET("/data-types", h.Data.ListTypes)
	api.POST("/data-types", h.Data.CreateType, middleware.RequireAdmin())
	api.DELETE("/data-types/:id", h.Data.DeleteType, middleware.RequireAdmin())

	api.GET("/data-types/:id/fields", h.Data.ListFields)
	api.GET("/data-types/:id/has-fields", h.Data.HasFields)
	api.POST("/data-types/:id/fields", h.Data.AddField, middleware.RequireAdmin())
	api.DELETE("/data-types/:id/fields/:fieldID", h.Data.RemoveField, middleware.RequireAdmin())
	api.PUT("/data-types/:id/fields/:fieldID/enum-values", h.Data.SetEnumValues, middleware.RequireAdmin())

	api.POST("/data-types/:id/export-csv", h.Data.ExportCSV)
	api.POST("/data-types/:id/export-excel", h.Data.ExportExcel)

	// Records. Per-type permission checks happen inside the handlers so
	// the guard can consult the grants table.
	api.GET("/data-types/:typeID/records", h.Data.ListRecords)
	api.POST("/data-types/:typeID/records", h.Data.InsertRecord)
	api.GET("/data-types/:typeID/records/:recordID", h.Data.GetRecord)
	api.PUT("/data-types/:typeID/records/:recordID", h.Data.UpdateRecord)
	api.DELETE("/data-types/:typeID/records/:recordID", h.Data.DeleteRecord)
	api.GET("/data-types/:typeID/statistics", h.Data.Statistics)

	admin := api.Group("/users", middleware.RequireAdmin())
	admin.GET("", h.Users.List)
	admin.POST("", h.Users.Create)
	admin.POST("/generate", h.Users.Generate)
	admin.PUT("/:id", h.Users.Update)
	admin.DELETE("/:id", h.Users.Delete)
	admin.POST("/:id/reset-password", h.Users.ResetPassword)

	admin.GET("/:id/permissions", h.Perms.ListForUser)
	admin.POST("/:id/permissions/:typeID", h.Perms.Grant)
	admin.DELETE("/:id/permissions/:typeID", h.Perms.Revoke)
}
