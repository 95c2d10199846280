package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/datavue/internal/config"
	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/repository"
)

// UserHandler exposes admin-only user management. Every route it serves
// sits behind the admin role middleware.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(cfg config.Config, users *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

// List handles GET /api/users.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

type createUserReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Create handles POST /api/users.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
	}
	if len(req.Password) < 4 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 4 characters"})
	}

	id, err := h.Users.Create(c.Request().Context(), req.Username, req.Password, req.FullName, req.Role, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

type generateUsersReq struct {
	Count int    `json:"count"`
	Role  string `json:"role"`
}

// Generate handles POST /api/users/generate, bulk-creating accounts
// with random credentials. The plain passwords appear only in this
// response.
func (h *UserHandler) Generate(c echo.Context) error {
	var req generateUsersReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Count < 1 || req.Count > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "count must be between 1 and 100"})
	}
	if req.Role != model.RoleAdmin {
		req.Role = model.RoleUser
	}

	generated, err := h.Users.Generate(c.Request().Context(), req.Count, req.Role, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"users": generated})
}

type updateUserReq struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

// Update handles PUT /api/users/:id.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	if err := h.Users.Update(c.Request().Context(), id, req.FullName, req.Role, active); err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Delete handles DELETE /api/users/:id. Admins cannot delete their own
// account so a session never removes the identity behind it.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if id == callerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete your own account"})
	}

	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

type resetPasswordReq struct {
	NewPassword string `json:"new_password"`
}

// ResetPassword handles POST /api/users/:id/reset-password.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.NewPassword) < 4 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 4 characters"})
	}

	if err := h.Users.ResetPassword(c.Request().Context(), id, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}
