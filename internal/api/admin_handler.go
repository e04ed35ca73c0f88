package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/models"
)

// AdminHandler handles the administrative user endpoints.
type AdminHandler struct {
	adminService core.AdminService
	logger       *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(as core.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{adminService: as, logger: logger}
}

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context())
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// SetUserStatus handles PATCH /admin/users/:id/status
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req models.SetUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	user, err := h.adminService.SetUserStatus(c.Request.Context(), p, c.Param("id"), *req.IsActive)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetUserRole handles PATCH /admin/users/:id/role
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req models.SetUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	user, err := h.adminService.SetUserRole(c.Request.Context(), p, c.Param("id"), req.Role)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	if err := h.adminService.DeleteUser(c.Request.Context(), p, c.Param("id")); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
