package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/legacy"
	"github.com/example/resumehub/internal/models"
)

// MigrationHandler imports resumes exported from the legacy local store.
type MigrationHandler struct {
	migrationService core.MigrationService
	logger           *zap.Logger
}

// NewMigrationHandler creates a new MigrationHandler.
func NewMigrationHandler(ms core.MigrationService, logger *zap.Logger) *MigrationHandler {
	return &MigrationHandler{migrationService: ms, logger: logger}
}

// ImportLocalResumes handles POST /migrations/import
func (h *MigrationHandler) ImportLocalResumes(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req models.LegacyImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	source, err := legacy.NewPayloadSource(req.Users, req.Resumes)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid legacy data", Details: err.Error()})
		return
	}

	result, err := h.migrationService.ImportLocalResumes(c.Request.Context(), source, p)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
